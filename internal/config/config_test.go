package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected
// default values. This serves as living documentation of the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default manifest is ./Cargo.toml", func(t *testing.T) {
		t.Parallel()
		if len(cfg.ManifestPaths) != 1 || cfg.ManifestPaths[0] != DefaultManifestPath {
			t.Errorf("expected ManifestPaths to be [%s], got %v", DefaultManifestPath, cfg.ManifestPaths)
		}
	})

	t.Run("default ResolveTimeout is 60 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.ResolveTimeout != 60*time.Second {
			t.Errorf("expected ResolveTimeout to be 60s, got %v", cfg.ResolveTimeout)
		}
	})

	t.Run("default BatchSize is 4", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected BatchSize to be 4, got %d", cfg.BatchSize)
		}
	})

	t.Run("default Write is false", func(t *testing.T) {
		t.Parallel()
		if cfg.Write {
			t.Error("expected Write to be false")
		}
	})

	t.Run("default RegistryFile is empty", func(t *testing.T) {
		t.Parallel()
		if cfg.RegistryFile != "" {
			t.Errorf("expected empty RegistryFile, got %q", cfg.RegistryFile)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	// validConfig returns a minimal valid configuration.
	// Tests can modify specific fields to test validation rules.
	validConfig := func() *Config {
		return &Config{
			ManifestPaths:  []string{"./Cargo.toml"},
			RegistryFile:   "mirror.txt",
			ResolveTimeout: 60 * time.Second,
			BatchSize:      4,
		}
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("no manifests", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.ManifestPaths = nil
		if err := cfg.Validate(); !errors.Is(err, ErrNoManifest) {
			t.Errorf("expected ErrNoManifest, got %v", err)
		}
	})

	t.Run("no registry file", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.RegistryFile = ""
		if err := cfg.Validate(); !errors.Is(err, ErrNoRegistryFile) {
			t.Errorf("expected ErrNoRegistryFile, got %v", err)
		}
	})

	t.Run("zero timeout", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.ResolveTimeout = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})

	t.Run("negative batch size", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.BatchSize = -1
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidBatchSize) {
			t.Errorf("expected ErrInvalidBatchSize, got %v", err)
		}
	})

	t.Run("conflicting report formats", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.JSONReport = true
		cfg.MarkdownReport = true
		if err := cfg.Validate(); !errors.Is(err, ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})
}

// TestLoadConfigFile tests YAML config loading.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("valid config file", func(t *testing.T) {
		t.Parallel()

		content := `
registryFile: /mirrors/crates/listing.txt
defaults:
  resolveTimeoutSeconds: 120
projects:
  ./services/api/Cargo.toml:
    registryFile: /mirrors/api/listing.txt
    ignore:
      - internal-tooling
`
		path := filepath.Join(t.TempDir(), ".mirrorscan")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile returned error: %v", err)
		}

		if cf.RegistryFile != "/mirrors/crates/listing.txt" {
			t.Errorf("RegistryFile = %q", cf.RegistryFile)
		}
		if cf.Defaults.ResolveTimeoutSeconds != 120 {
			t.Errorf("Defaults.ResolveTimeoutSeconds = %d", cf.Defaults.ResolveTimeoutSeconds)
		}

		pc := cf.GetProjectConfig("./services/api/Cargo.toml")
		if pc.RegistryFile != "/mirrors/api/listing.txt" {
			t.Errorf("project RegistryFile = %q", pc.RegistryFile)
		}
		if len(pc.Ignore) != 1 || pc.Ignore[0] != "internal-tooling" {
			t.Errorf("project Ignore = %v", pc.Ignore)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("malformed YAML", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".mirrorscan")
		if err := os.WriteFile(path, []byte("projects: [not a map"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for malformed YAML")
		}
	})

	t.Run("empty file initializes projects map", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".mirrorscan")
		if err := os.WriteFile(path, []byte(""), 0600); err != nil {
			t.Fatal(err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile returned error: %v", err)
		}
		if cf.Projects == nil {
			t.Error("Projects map must be initialized")
		}
	})
}

// TestGetProjectConfig tests the defaults/override merge.
func TestGetProjectConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: ProjectConfig{
			CargoPath:             "/usr/bin/cargo",
			ResolveTimeoutSeconds: 60,
			Ignore:                []string{"default-ignored"},
		},
		Projects: map[string]ProjectConfig{
			"./api/Cargo.toml": {
				RegistryFile: "/mirrors/api/listing.txt",
				Ignore:       []string{"api-only"},
			},
		},
	}

	t.Run("known project merges with defaults", func(t *testing.T) {
		t.Parallel()

		pc := cf.GetProjectConfig("./api/Cargo.toml")
		if pc.RegistryFile != "/mirrors/api/listing.txt" {
			t.Errorf("RegistryFile = %q", pc.RegistryFile)
		}
		// Inherited from defaults
		if pc.CargoPath != "/usr/bin/cargo" {
			t.Errorf("CargoPath = %q", pc.CargoPath)
		}
		if pc.ResolveTimeoutSeconds != 60 {
			t.Errorf("ResolveTimeoutSeconds = %d", pc.ResolveTimeoutSeconds)
		}
		// Overridden, not merged
		if len(pc.Ignore) != 1 || pc.Ignore[0] != "api-only" {
			t.Errorf("Ignore = %v", pc.Ignore)
		}
	})

	t.Run("unknown project gets defaults", func(t *testing.T) {
		t.Parallel()

		pc := cf.GetProjectConfig("./other/Cargo.toml")
		if pc.CargoPath != "/usr/bin/cargo" {
			t.Errorf("CargoPath = %q", pc.CargoPath)
		}
		if len(pc.Ignore) != 1 || pc.Ignore[0] != "default-ignored" {
			t.Errorf("Ignore = %v", pc.Ignore)
		}
	})
}

// TestFindConfigFile tests the search order.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("registryFile: x"), 0600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile = %q, want %q", got, path)
		}
	})

	t.Run("explicit missing path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}

// TestXDGDirs verifies the application directories carry the app name.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName {
		t.Errorf("XDGDataDir = %q, want suffix %q", XDGDataDir(), AppName)
	}
	if filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("XDGConfigDir = %q, want suffix %q", XDGConfigDir(), AppName)
	}
}
