package persistence

import (
	"fmt"
	"strings"
	"text/template"

	"gorm.io/gorm"
)

// TableDef is one table of the fixed per-tenant schema
type TableDef struct {
	Name string
	// Reference tables are carried into the next fiscal year by a rollover
	Reference bool
	// Columns lists the copied columns of a reference table, in DDL order
	Columns []string
	ddl     *template.Template
}

type ddlParams struct {
	AutoID string
}

func table(name string, reference bool, columns []string, body string) TableDef {
	return TableDef{
		Name:      name,
		Reference: reference,
		Columns:   columns,
		ddl: template.Must(template.New(name).Parse(
			"CREATE TABLE IF NOT EXISTS " + name + " (" + body + ")")),
	}
}

// CreateSQL renders the idempotent CREATE TABLE statement for a dialect.
// Names are unqualified; the tenant transaction supplies the namespace.
func (t TableDef) CreateSQL(d Dialect) (string, error) {
	var b strings.Builder
	if err := t.ddl.Execute(&b, ddlParams{AutoID: d.AutoIncrementPK()}); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name, err)
	}
	return b.String(), nil
}

// TenantTables is the table set of every tenant namespace, in dependency order:
// each table only references tables listed before it.
var TenantTables = []TableDef{
	table("famille_art", true, []string{"famille"}, `
		famille VARCHAR(50) PRIMARY KEY`),

	table("fournisseur", true, []string{
		"nfournisseur", "nom_fournisseur", "resp_fournisseur", "adresse_fourni",
		"tel", "tel1", "tel2", "caf", "cabl", "email", "commentaire",
	}, `
		nfournisseur VARCHAR(20) PRIMARY KEY,
		nom_fournisseur VARCHAR(100),
		resp_fournisseur VARCHAR(100),
		adresse_fourni TEXT,
		tel VARCHAR(20),
		tel1 VARCHAR(20),
		tel2 VARCHAR(20),
		caf DECIMAL(15,2) DEFAULT 0,
		cabl DECIMAL(15,2) DEFAULT 0,
		email VARCHAR(100),
		commentaire TEXT`),

	table("client", true, []string{
		"nclient", "raison_sociale", "adresse", "contact_person", "c_affaire_fact",
		"c_affaire_bl", "nrc", "date_rc", "lieu_rc", "i_fiscal", "n_article",
		"tel", "email", "commentaire",
	}, `
		nclient VARCHAR(20) PRIMARY KEY,
		raison_sociale VARCHAR(100),
		adresse TEXT,
		contact_person VARCHAR(100),
		c_affaire_fact DECIMAL(15,2) DEFAULT 0,
		c_affaire_bl DECIMAL(15,2) DEFAULT 0,
		nrc VARCHAR(50),
		date_rc DATE,
		lieu_rc VARCHAR(100),
		i_fiscal VARCHAR(50),
		n_article VARCHAR(50),
		tel VARCHAR(20),
		email VARCHAR(100),
		commentaire TEXT`),

	table("article", true, []string{
		"narticle", "famille", "designation", "nfournisseur", "prix_unitaire",
		"marge", "tva", "prix_vente", "seuil", "stock_f", "stock_bl",
	}, `
		narticle VARCHAR(20) PRIMARY KEY,
		famille VARCHAR(50),
		designation VARCHAR(200),
		nfournisseur VARCHAR(20),
		prix_unitaire DECIMAL(15,2) DEFAULT 0,
		marge DECIMAL(5,2) DEFAULT 0,
		tva DECIMAL(5,2) DEFAULT 0,
		prix_vente DECIMAL(15,2) DEFAULT 0,
		seuil INTEGER DEFAULT 0,
		stock_f INTEGER DEFAULT 0,
		stock_bl INTEGER DEFAULT 0,
		FOREIGN KEY (famille) REFERENCES famille_art(famille),
		FOREIGN KEY (nfournisseur) REFERENCES fournisseur(nfournisseur)`),

	table("fact", false, nil, `
		nfact {{.AutoID}},
		nclient VARCHAR(20),
		date_fact DATE,
		montant_ht DECIMAL(15,2) DEFAULT 0,
		timbre DECIMAL(15,2) DEFAULT 0,
		tva DECIMAL(15,2) DEFAULT 0,
		autre_taxe DECIMAL(15,2) DEFAULT 0,
		marge DECIMAL(15,2) DEFAULT 0,
		banq VARCHAR(100),
		ncheque VARCHAR(50),
		nbc VARCHAR(50),
		date_bc DATE,
		nom_preneur VARCHAR(100),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (nclient) REFERENCES client(nclient)`),

	table("detail_fact", false, nil, `
		id {{.AutoID}},
		nfact INTEGER,
		narticle VARCHAR(20),
		qte INTEGER,
		tva DECIMAL(5,2),
		pr_achat DECIMAL(15,2),
		prix DECIMAL(15,2),
		total_ligne DECIMAL(15,2),
		FOREIGN KEY (nfact) REFERENCES fact(nfact) ON DELETE CASCADE,
		FOREIGN KEY (narticle) REFERENCES article(narticle)`),

	table("bl", false, nil, `
		nfact {{.AutoID}},
		nclient VARCHAR(20),
		date_fact DATE,
		montant_ht DECIMAL(15,2) DEFAULT 0,
		timbre DECIMAL(15,2) DEFAULT 0,
		tva DECIMAL(15,2) DEFAULT 0,
		autre_taxe DECIMAL(15,2) DEFAULT 0,
		facturer BOOLEAN DEFAULT FALSE,
		banq VARCHAR(100),
		ncheque VARCHAR(50),
		nbc VARCHAR(50),
		date_bc DATE,
		nom_preneur VARCHAR(100),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (nclient) REFERENCES client(nclient)`),

	table("detail_bl", false, nil, `
		id {{.AutoID}},
		nfact INTEGER,
		narticle VARCHAR(20),
		qte INTEGER,
		tva DECIMAL(5,2),
		prix DECIMAL(15,2),
		total_ligne DECIMAL(15,2),
		facturer BOOLEAN DEFAULT FALSE,
		FOREIGN KEY (nfact) REFERENCES bl(nfact) ON DELETE CASCADE,
		FOREIGN KEY (narticle) REFERENCES article(narticle)`),

	table("fprof", false, nil, `
		nfact {{.AutoID}},
		nclient VARCHAR(20),
		date_fact DATE,
		montant_ht DECIMAL(15,2) DEFAULT 0,
		timbre DECIMAL(15,2) DEFAULT 0,
		tva DECIMAL(15,2) DEFAULT 0,
		autre_taxe DECIMAL(15,2) DEFAULT 0,
		marge DECIMAL(15,2) DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (nclient) REFERENCES client(nclient)`),

	table("detail_fprof", false, nil, `
		id {{.AutoID}},
		nfact INTEGER,
		narticle VARCHAR(20),
		qte INTEGER,
		tva DECIMAL(5,2),
		pr_achat DECIMAL(15,2),
		prix DECIMAL(15,2),
		total_ligne DECIMAL(15,2),
		FOREIGN KEY (nfact) REFERENCES fprof(nfact) ON DELETE CASCADE,
		FOREIGN KEY (narticle) REFERENCES article(narticle)`),

	table("fachat", false, nil, `
		nfact {{.AutoID}},
		nfournisseur VARCHAR(20),
		date_fact DATE,
		montant_ht DECIMAL(15,2) DEFAULT 0,
		timbre DECIMAL(15,2) DEFAULT 0,
		tva DECIMAL(15,2) DEFAULT 0,
		autre_taxe DECIMAL(15,2) DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (nfournisseur) REFERENCES fournisseur(nfournisseur)`),

	table("fachat_detail", false, nil, `
		id {{.AutoID}},
		nfact INTEGER,
		narticle VARCHAR(20),
		qte INTEGER,
		tva DECIMAL(5,2),
		prix DECIMAL(15,2),
		total_ligne DECIMAL(15,2),
		FOREIGN KEY (nfact) REFERENCES fachat(nfact) ON DELETE CASCADE,
		FOREIGN KEY (narticle) REFERENCES article(narticle)`),

	table("stock_movements", false, nil, `
		id {{.AutoID}},
		narticle VARCHAR(20),
		movement_type VARCHAR(20),
		quantity INTEGER,
		previous_stock INTEGER,
		new_stock INTEGER,
		reference_id INTEGER,
		reference_type VARCHAR(20),
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_by VARCHAR(100),
		FOREIGN KEY (narticle) REFERENCES article(narticle)`),
}

// ReferenceTables returns the tables a rollover copies, in copy order
func ReferenceTables() []TableDef {
	out := make([]TableDef, 0, 4)
	for _, t := range TenantTables {
		if t.Reference {
			out = append(out, t)
		}
	}
	return out
}

// CountRows counts the rows of an unqualified table inside a tenant transaction
func CountRows(tx *gorm.DB, d Dialect, table string) (int64, error) {
	var n int64
	if err := tx.Raw("SELECT COUNT(*) FROM " + d.QuoteIdent(table)).Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
