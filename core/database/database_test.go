package database

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestURLEscapesCredentials(t *testing.T) {
	got := URL(Config{User: "lead", Password: "p@ss:w/rd", Host: "db", Port: "5432", Name: "leadbot", SSLMode: "disable"})
	want := "postgres://lead:p%40ss%3Aw%2Frd@db:5432/leadbot?sslmode=disable"
	if got != want {
		t.Fatalf("URL = %s, want %s", got, want)
	}
}

func TestUpFilesAndAppliedBetween(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_b.up.sql", "000001_a.up.sql", "000001_a.down.sql", "000003_c.up.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files := upFiles(dir)
	if !reflect.DeepEqual(files, []string{"000001_a.up.sql", "000002_b.up.sql", "000003_c.up.sql"}) {
		t.Fatalf("upFiles = %v", files)
	}
	if got := appliedBetween(files, 1, 3); !reflect.DeepEqual(got, []string{"000002_b.up.sql", "000003_c.up.sql"}) {
		t.Fatalf("appliedBetween = %v", got)
	}
	if got := appliedBetween(files, 3, 3); got != nil {
		t.Fatalf("nothing applied, got %v", got)
	}
}
