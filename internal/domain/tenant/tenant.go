// Package tenant holds the tenant naming rules, migration definitions and
// run results of the schema lifecycle engine.
package tenant

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/erp/tenantdb/internal/domain/shared"
)

var (
	schemaNamePattern   = regexp.MustCompile(`^[0-9]{4}_bu[0-9]{2}$`)
	businessUnitPattern = regexp.MustCompile(`^bu[0-9]{2}$`)
	identifierPattern   = regexp.MustCompile(`^[A-Za-z0-9_]{1,63}$`)
)

// Tenant identifies one isolated business context: a business unit in a fiscal year.
type Tenant struct {
	BusinessUnit string
	FiscalYear   int
}

// New validates and builds a Tenant
func New(businessUnit string, fiscalYear int) (Tenant, error) {
	if !businessUnitPattern.MatchString(businessUnit) {
		return Tenant{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("business unit %q must match bu followed by two digits", businessUnit))
	}
	if fiscalYear < 1000 || fiscalYear > 9999 {
		return Tenant{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("fiscal year %d must have four digits", fiscalYear))
	}
	return Tenant{BusinessUnit: businessUnit, FiscalYear: fiscalYear}, nil
}

// SchemaName returns the namespace key "{fiscalYear}_{businessUnit}"
func (t Tenant) SchemaName() string {
	return fmt.Sprintf("%04d_%s", t.FiscalYear, t.BusinessUnit)
}

// String implements fmt.Stringer
func (t Tenant) String() string {
	return t.SchemaName()
}

// ParseSchemaName is the inverse of SchemaName
func ParseSchemaName(schemaName string) (Tenant, error) {
	if err := ValidateSchemaName(schemaName); err != nil {
		return Tenant{}, err
	}
	year, _ := strconv.Atoi(schemaName[:4])
	return Tenant{BusinessUnit: schemaName[5:], FiscalYear: year}, nil
}

// IsSchemaName reports whether name follows the tenant naming convention
func IsSchemaName(name string) bool {
	return schemaNamePattern.MatchString(name)
}

// ValidateSchemaName returns an INVALID_INPUT domain error for malformed tenant names
func ValidateSchemaName(name string) error {
	if !IsSchemaName(name) {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("schema %q does not match the tenant pattern YYYY_buNN", name))
	}
	return nil
}

// ValidateIdentifier is the allow-list every identifier must pass before it is
// interpolated into DDL. Values never go through here; they are bound parameters.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("identifier %q contains characters outside [A-Za-z0-9_]", name))
	}
	return nil
}

// NextExercise builds the source and destination tenants of a fiscal-year rollover.
// It performs no I/O so malformed requests fail before any database is touched.
func NextExercise(businessUnit string, currentYear, newYear int) (Tenant, Tenant, error) {
	source, err := New(businessUnit, currentYear)
	if err != nil {
		return Tenant{}, Tenant{}, err
	}
	target, err := New(businessUnit, newYear)
	if err != nil {
		return Tenant{}, Tenant{}, err
	}
	if newYear <= currentYear {
		return Tenant{}, Tenant{}, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("new year %d must be after current year %d", newYear, currentYear))
	}
	return source, target, nil
}
