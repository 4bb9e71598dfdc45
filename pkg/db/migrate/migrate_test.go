//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestPrepareURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain", "postgresql://u:p@host:5432/db", "pgx5://u:p@host:5432/db?sslmode=disable"},
		{"short scheme", "postgres://u:p@host/db", "pgx5://u:p@host/db?sslmode=disable"},
		{"params", "postgresql://u:p@host/db?application_name=srp", "pgx5://u:p@host/db?application_name=srp&sslmode=disable"},
		{"sslmode kept", "postgresql://u:p@host/db?sslmode=require", "pgx5://u:p@host/db?sslmode=require"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrepareURL(tt.url))
		})
	}
}

func TestMigrateSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateSQLite(db))
	// second run is a no-op
	require.NoError(t, MigrateSQLite(db))

	var count int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM capture").Scan(&count))
	assert.Equal(t, 0, count)
}
