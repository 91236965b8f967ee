package tenant

import (
	"errors"
	"testing"

	"github.com/erp/tenantdb/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("builds schema name from year and unit", func(t *testing.T) {
		tn, err := New("bu01", 2025)
		require.NoError(t, err)
		assert.Equal(t, "2025_bu01", tn.SchemaName())
		assert.Equal(t, "2025_bu01", tn.String())
	})

	t.Run("rejects malformed business unit", func(t *testing.T) {
		for _, bu := range []string{"", "bu1", "BU01", "bu001", "xx01", "bu0a"} {
			_, err := New(bu, 2025)
			assert.Error(t, err, bu)
		}
	})

	t.Run("rejects years without four digits", func(t *testing.T) {
		_, err := New("bu01", 999)
		assert.Error(t, err)
		_, err = New("bu01", 10000)
		assert.Error(t, err)
	})
}

func TestParseSchemaName(t *testing.T) {
	tn, err := ParseSchemaName("2026_bu12")
	require.NoError(t, err)
	assert.Equal(t, Tenant{BusinessUnit: "bu12", FiscalYear: 2026}, tn)

	_, err = ParseSchemaName("2026_bu1")
	assert.Error(t, err)
}

func TestIsSchemaName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"2025_bu01", true},
		{"1999_bu99", true},
		{"2025_bu1", false},
		{"25_bu01", false},
		{"2025-bu01", false},
		{"2025_bu01; DROP SCHEMA public", false},
		{"public", false},
		{"information_schema", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSchemaName(tt.name))
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("famille_art"))
	assert.NoError(t, ValidateIdentifier("2025_bu01"))
	assert.Error(t, ValidateIdentifier(""))
	assert.Error(t, ValidateIdentifier(`a"b`))
	assert.Error(t, ValidateIdentifier("a.b"))
	assert.Error(t, ValidateIdentifier("a b"))
}

func TestNextExercise(t *testing.T) {
	t.Run("valid rollover", func(t *testing.T) {
		src, dst, err := NextExercise("bu01", 2025, 2026)
		require.NoError(t, err)
		assert.Equal(t, "2025_bu01", src.SchemaName())
		assert.Equal(t, "2026_bu01", dst.SchemaName())
	})

	t.Run("new year must be after current year", func(t *testing.T) {
		for _, next := range []int{2025, 2024} {
			_, _, err := NextExercise("bu01", 2025, next)
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, "INVALID_INPUT", domainErr.Code)
		}
	})

	t.Run("malformed business unit", func(t *testing.T) {
		_, _, err := NextExercise("unit1", 2025, 2026)
		assert.Error(t, err)
	})
}

func TestParseErrorPolicy(t *testing.T) {
	p, err := ParseErrorPolicy("", FailFast)
	require.NoError(t, err)
	assert.Equal(t, FailFast, p)

	p, err = ParseErrorPolicy("continue-on-error", FailFast)
	require.NoError(t, err)
	assert.Equal(t, ContinueOnError, p)

	_, err = ParseErrorPolicy("retry", FailFast)
	assert.Error(t, err)
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")

	assert.ErrorIs(t, &CatalogError{Path: "migrations", Err: cause}, cause)
	assert.ErrorIs(t, &ConnectivityError{Schema: "2025_bu01", Err: cause}, cause)
	assert.ErrorIs(t, &MigrationExecutionError{Schema: "2025_bu01", Version: "001", Err: cause}, cause)
	assert.ErrorIs(t, &SourceNotFoundError{Schema: "2025_bu01", Err: cause}, cause)
	assert.ErrorIs(t, &ProvisionStepError{Schema: "2025_bu01", Step: "create_table", Err: cause}, cause)

	assert.Contains(t, (&SourceNotFoundError{Schema: "2024_bu01"}).Error(), "does not exist")
	assert.Contains(t, (&ConnectivityError{Err: cause}).Error(), "database unreachable")
}
