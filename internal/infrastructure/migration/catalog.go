package migration

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/erp/tenantdb/internal/domain/tenant"
)

// migrationFilePattern matches <version>_<description>.sql
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Catalog is the ordered set of migration files in one directory
type Catalog struct {
	dir  string
	fsys fs.FS
}

// NewCatalog reads migrations from a directory on disk
func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir, fsys: os.DirFS(dir)}
}

// NewCatalogFS reads migrations from the root of fsys (for embedded files)
func NewCatalogFS(name string, fsys fs.FS) *Catalog {
	return &Catalog{dir: name, fsys: fsys}
}

// Dir returns the directory the catalog was built from
func (c *Catalog) Dir() string { return c.dir }

// LoadMigrations returns every migration sorted lexically by filename.
// Files not matching the naming pattern and subdirectories are skipped.
// An unreadable directory and an unreadable file are CatalogErrors. So are two
// files sharing one version: the tracker records applied rows by version, so
// a directory listing alone is not enough to accept a catalog.
func (c *Catalog) LoadMigrations() ([]tenant.Migration, error) {
	entries, err := fs.ReadDir(c.fsys, ".")
	if err != nil {
		return nil, &tenant.CatalogError{Path: c.dir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !migrationFilePattern.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	migrations := make([]tenant.Migration, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		m := migrationFilePattern.FindStringSubmatch(name)
		version := m[1]
		if prev, dup := seen[version]; dup {
			return nil, &tenant.CatalogError{
				Path: c.dir,
				Err:  fmt.Errorf("version %s is used by both %s and %s", version, prev, name),
			}
		}
		seen[version] = name

		body, err := fs.ReadFile(c.fsys, name)
		if err != nil {
			return nil, &tenant.CatalogError{Path: c.dir, Err: err}
		}
		migrations = append(migrations, tenant.Migration{
			Version:     version,
			Description: strings.ReplaceAll(m[2], "_", " "),
			Filename:    name,
			SQL:         string(body),
		})
	}
	return migrations, nil
}
