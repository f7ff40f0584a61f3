package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cuops/internal/app"
	"cuops/internal/config"
)

func TestOpenMigratesWorkspace(t *testing.T) {
	dir := t.TempDir()
	actx, err := app.Open(app.Options{Workspace: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer actx.Close()
	if actx.Config.Database.Driver != "sqlite" {
		t.Fatalf("driver = %s", actx.Config.Database.Driver)
	}
	if _, err := os.Stat(filepath.Join(dir, ".cuops", "cuops.db")); err != nil {
		t.Fatalf("database file: %v", err)
	}
	if _, err := actx.Engine.ListCustomers(context.Background(), false); err != nil {
		t.Fatalf("list customers: %v", err)
	}
}

func TestResolveConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(config.Path(dir), []byte("ledger:\n  allow_overdraft: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := app.ResolveConfig(app.Options{Workspace: dir})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Ledger.AllowOverdraft {
		t.Fatalf("file setting lost")
	}
	if _, err := app.ResolveConfig(app.Options{Workspace: dir, Driver: "postgres"}); err == nil {
		t.Fatalf("postgres without dsn should fail validation")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	if err := app.LoadEnv(dir); err != nil {
		t.Fatalf("missing .env: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CUOPS_TEST_VALUE=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CUOPS_TEST_VALUE", "")
	os.Unsetenv("CUOPS_TEST_VALUE")
	if err := app.LoadEnv(dir); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("CUOPS_TEST_VALUE"); got != "from-dotenv" {
		t.Fatalf("env = %q", got)
	}
}
