package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if missing := cfg.ContentTypeTemplates(); len(missing) != 0 {
		t.Fatalf("default templates missing for %v", missing)
	}
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("ledger:\n  allow_overdraft: true\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !cfg.Ledger.AllowOverdraft {
		t.Fatalf("allow_overdraft not applied")
	}
	if cfg.Server.BasePath != "/v1" {
		t.Fatalf("base path default lost: %q", cfg.Server.BasePath)
	}
	if _, ok := cfg.Template("article"); !ok {
		t.Fatalf("default templates lost")
	}
}

func TestFromYAMLReplacesTemplates(t *testing.T) {
	cfg, err := FromYAML([]byte("tasks:\n  templates:\n    quick: [One, Two]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if titles, ok := cfg.Template("quick"); !ok || len(titles) != 2 {
		t.Fatalf("custom template = %v %v", titles, ok)
	}
	if _, ok := cfg.Template("article"); ok {
		t.Fatalf("custom templates should replace the defaults")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"postgres without dsn": "database:\n  driver: postgres\n",
		"unknown driver":       "database:\n  driver: mysql\n",
		"bad level":            "log:\n  level: loud\n",
		"empty template":       "tasks:\n  templates:\n    x: []\n",
		"webhook without url":  "webhooks:\n  - secret: s\n",
	}
	for name, raw := range cases {
		if _, err := FromYAML([]byte(raw)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg != nil {
		t.Fatalf("missing file: cfg=%v err=%v", cfg, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "cuops.yml"), []byte(GenerateDefault()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOrDefault(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr == "" {
		t.Fatalf("addr not loaded")
	}
}
