package postgres

import "testing"

func TestDSNPrefersExplicit(t *testing.T) {
	got := DSN(ClientConfig{DSN: "postgres://u:p@db/x", Host: "ignored"})
	if got != "postgres://u:p@db/x" {
		t.Fatalf("DSN = %q", got)
	}
}

func TestDSNDefaults(t *testing.T) {
	got := DSN(ClientConfig{Host: "localhost", Database: "arb", User: "arb", Password: "pw"})
	want := "postgres://arb:pw@localhost:5432/arb?sslmode=disable"
	if got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}

func TestMigrationNamesEmbedded(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migrationNames: %v", err)
	}
	if len(names) == 0 || names[0] != "001_opportunities.sql" {
		t.Fatalf("names = %v", names)
	}
}
