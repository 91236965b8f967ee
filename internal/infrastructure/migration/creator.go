package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/template"
	"time"
)

const migrationTemplate = `-- Migration: {{.Version}} {{.Name}}
-- Created: {{.Timestamp}}
-- Applied once per tenant, inside one transaction, with unqualified table names.

`

const minVersionWidth = 3

// MigrationFile describes a newly created migration
type MigrationFile struct {
	Version   string
	Name      string
	Timestamp string
	Path      string
}

// CreateMigration writes the next migration file of dir. The version is one
// above the highest existing version, zero-padded to the widest existing one.
func CreateMigration(migrationsDir, name string) (*MigrationFile, error) {
	base := sanitizeName(name)
	if base == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := NewCatalog(migrationsDir).LoadMigrations()
	if err != nil {
		return nil, err
	}
	next, width := 1, minVersionWidth
	for _, m := range existing {
		n, err := strconv.Atoi(m.Version)
		if err != nil {
			return nil, fmt.Errorf("version %s of %s is not a number: %w", m.Version, m.Filename, err)
		}
		if n >= next {
			next = n + 1
		}
		if len(m.Version) > width {
			width = len(m.Version)
		}
	}

	version := fmt.Sprintf("%0*d", width, next)
	mf := &MigrationFile{
		Version:   version,
		Name:      base,
		Timestamp: time.Now().Format(time.RFC3339),
		Path:      filepath.Join(migrationsDir, version+"_"+base+".sql"),
	}
	if err := createMigrationFile(mf.Path, mf); err != nil {
		return nil, err
	}
	return mf, nil
}

func createMigrationFile(path string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(migrationTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// sanitizeName converts a migration name to a safe file name format
func sanitizeName(name string) string {
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			result = append(result, c)
		case c >= 'A' && c <= 'Z':
			result = append(result, c+'a'-'A')
		case c == ' ' || c == '-' || c == '_':
			if len(result) > 0 && result[len(result)-1] != '_' {
				result = append(result, '_')
			}
		}
	}
	if len(result) > 0 && result[len(result)-1] == '_' {
		result = result[:len(result)-1]
	}
	return string(result)
}
