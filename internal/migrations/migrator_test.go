package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationFS, migrationsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("no migrations embedded")
	}

	data, err := fs.ReadFile(migrationFS, migrationsDir+"/"+entries[0].Name())
	if err != nil {
		t.Fatal(err)
	}
	sql := string(data)
	for _, table := range []string{"login_requests", "verification_codes", "final_verifications", "access_grants", "users", "feature_flags"} {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("migration does not create %s", table)
		}
	}
	if !strings.Contains(sql, "UNIQUE (username, code)") {
		t.Error("verification code pair must be unique")
	}
	if !strings.Contains(sql, "-- +goose Down") {
		t.Error("missing down section")
	}
}
