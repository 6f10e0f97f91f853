package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// clearEnv blanks every environment variable Load consults, so tests are not
// affected by the caller's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AUGER_API_KEY", "AUGER_CSE_ID", "AUGER_STORE", "AUGER_STORE_DSN",
		"AUGER_PROXY", "AUGER_LOG_LEVEL", "AUGER_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func baseArgs() []string {
	return []string{"-api-key", "test-key", "-cse-id", "test-cx", "-org", "Acme Corp"}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(baseArgs())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIKey != "test-key" || cfg.CSEID != "test-cx" || cfg.Organization != "Acme Corp" {
		t.Errorf("unexpected required fields: %q %q %q", cfg.APIKey, cfg.CSEID, cfg.Organization)
	}
	if cfg.Store != "json" {
		t.Errorf("expected default store json, got %q", cfg.Store)
	}
	if cfg.OutputPath != "employees.json" || cfg.MetricsPath != "metrics.json" {
		t.Errorf("unexpected default paths: %q %q", cfg.OutputPath, cfg.MetricsPath)
	}
	if cfg.EmailPolicy != "multi" {
		t.Errorf("expected default policy multi, got %q", cfg.EmailPolicy)
	}
	if cfg.RequestsPerSecond != 1.0 {
		t.Errorf("expected default rps 1.0, got %v", cfg.RequestsPerSecond)
	}
	if cfg.MaxPages != 10 {
		t.Errorf("expected default max pages 10, got %d", cfg.MaxPages)
	}
	if cfg.ThrottleBackoff.Seconds() != 10 {
		t.Errorf("expected default throttle backoff 10s, got %v", cfg.ThrottleBackoff)
	}
	if cfg.Fingerprint != "go" {
		t.Errorf("expected default fingerprint go, got %q", cfg.Fingerprint)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("unexpected default log settings: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if !slices.Equal(cfg.RoleTerms, RolesUS) {
		t.Errorf("expected default role terms to be the US preset, got %d terms", len(cfg.RoleTerms))
	}
}

func TestLoadEnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUGER_API_KEY", "env-key")
	t.Setenv("AUGER_STORE", "csv")

	// Environment fills in values no flag provided.
	cfg, err := Load([]string{"-cse-id", "test-cx", "-org", "Acme Corp"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("expected api key from environment, got %q", cfg.APIKey)
	}
	if cfg.Store != "csv" {
		t.Errorf("expected store from environment, got %q", cfg.Store)
	}

	// An explicit flag beats the environment.
	cfg, err = Load(append(baseArgs(), "-store", "json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "test-key" {
		t.Errorf("expected flag to override environment, got %q", cfg.APIKey)
	}
	if cfg.Store != "json" {
		t.Errorf("expected flag store to win, got %q", cfg.Store)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	content := "api_key: file-key\ncse_id: file-cx\nemail_format: \"{f}{last}@acme.example\"\nroles_preset: es\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings file: %v", err)
	}

	// The file supplies everything the command line left out.
	cfg, err := Load([]string{"-settings", path, "-org", "Acme Corp"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "file-key" || cfg.CSEID != "file-cx" {
		t.Errorf("expected credentials from settings file, got %q %q", cfg.APIKey, cfg.CSEID)
	}
	if cfg.EmailFormat != "{f}{last}@acme.example" {
		t.Errorf("expected email format from settings file, got %q", cfg.EmailFormat)
	}
	if !slices.Equal(cfg.RoleTerms, RolesES) {
		t.Errorf("expected ES preset from settings file, got %d terms", len(cfg.RoleTerms))
	}

	// Flags still win over the file.
	cfg, err = Load([]string{"-settings", path, "-org", "Acme Corp", "-api-key", "flag-key"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "flag-key" {
		t.Errorf("expected flag to override settings file, got %q", cfg.APIKey)
	}

	// So does the environment.
	t.Setenv("AUGER_API_KEY", "env-key")
	cfg, err = Load([]string{"-settings", path, "-org", "Acme Corp"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("expected environment to override settings file, got %q", cfg.APIKey)
	}

	// An explicit settings path that does not exist is an error.
	_, err = Load([]string{"-settings", filepath.Join(dir, "missing.yaml"), "-org", "Acme Corp"})
	if err == nil || !strings.Contains(err.Error(), "read settings file") {
		t.Errorf("expected settings read error, got %v", err)
	}
}

func TestLoadRolesFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	content := "roles:\n  - Gestor\n  - Director de Oficina\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write roles file: %v", err)
	}

	cfg, err := Load(append(baseArgs(), "-roles-file", path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"", "Gestor", "Director de Oficina"}
	if !slices.Equal(cfg.RoleTerms, want) {
		t.Errorf("expected role terms %v, got %v", want, cfg.RoleTerms)
	}

	// A roles file without a roles list is rejected.
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("other: value\n"), 0o644); err != nil {
		t.Fatalf("write roles file: %v", err)
	}
	_, err = Load(append(baseArgs(), "-roles-file", empty))
	if err == nil || !strings.Contains(err.Error(), "no roles list") {
		t.Errorf("expected empty roles file error, got %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	clearEnv(t)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"missing api key", []string{"-cse-id", "c", "-org", "Acme"}, "api key is required"},
		{"missing cse id", []string{"-api-key", "k", "-org", "Acme"}, "search engine id is required"},
		{"missing org", []string{"-api-key", "k", "-cse-id", "c"}, "organization is required"},
		{"bad policy", append(baseArgs(), "-email-policy", "all"), "unknown email policy"},
		{"bad store", append(baseArgs(), "-store", "redis"), "unknown store"},
		{"sqlite without dsn", append(baseArgs(), "-store", "sqlite"), "requires -store-dsn"},
		{"bad fingerprint", append(baseArgs(), "-fingerprint", "ie6"), "unknown fingerprint profile"},
		{"zero rps", append(baseArgs(), "-rps", "0"), "rps must be positive"},
		{"bad jitter", append(baseArgs(), "-jitter", "1.5"), "jitter must be between"},
		{"bad preset", append(baseArgs(), "-roles-preset", "fr"), "unknown roles preset"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.args)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestPreset(t *testing.T) {
	us, err := Preset("us")
	if err != nil {
		t.Fatalf("Preset(us) error = %v", err)
	}
	if len(us) == 0 || us[0] != "" {
		t.Errorf("expected US preset to begin with the bare query term")
	}
	if !slices.Contains(us, "Engineer") {
		t.Errorf("expected US preset to contain Engineer")
	}

	// Lookup is case-insensitive.
	es, err := Preset("ES")
	if err != nil {
		t.Fatalf("Preset(ES) error = %v", err)
	}
	if !slices.Contains(es, "Ciberseguridad") {
		t.Errorf("expected ES preset to contain Ciberseguridad")
	}

	// Callers get a copy, not the shared list.
	es[1] = "mutated"
	fresh, _ := Preset("es")
	if fresh[1] == "mutated" {
		t.Errorf("Preset returned the shared backing slice")
	}

	if _, err := Preset("fr"); err == nil {
		t.Errorf("expected an error for an unknown preset")
	}
}
