package resolver

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestNewCargoResolver tests option application.
func TestNewCargoResolver(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		r := NewCargoResolver()
		if r.timeout != DefaultTimeout {
			t.Errorf("timeout = %v, want %v", r.timeout, DefaultTimeout)
		}
		if r.binary != "" {
			t.Errorf("binary = %q, want empty", r.binary)
		}
		if r.logger == nil {
			t.Error("logger must never be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		t.Parallel()
		r := NewCargoResolver(
			WithCargoPath("/opt/rust/bin/cargo"),
			WithTimeout(5*time.Minute),
		)
		if r.binary != "/opt/rust/bin/cargo" {
			t.Errorf("binary = %q", r.binary)
		}
		if r.timeout != 5*time.Minute {
			t.Errorf("timeout = %v", r.timeout)
		}
	})

	t.Run("zero timeout ignored", func(t *testing.T) {
		t.Parallel()
		r := NewCargoResolver(WithTimeout(0))
		if r.timeout != DefaultTimeout {
			t.Errorf("timeout = %v, want default", r.timeout)
		}
	})

	t.Run("explicit path is always available", func(t *testing.T) {
		t.Parallel()
		r := NewCargoResolver(WithCargoPath("/opt/rust/bin/cargo"))
		if !r.IsAvailable() {
			t.Error("explicit cargo path must report available")
		}
	})
}

// TestResolveMissingManifest verifies the manifest existence check runs
// before anything is executed.
func TestResolveMissingManifest(t *testing.T) {
	t.Parallel()

	r := NewCargoResolver(WithCargoPath("/nonexistent/cargo"))
	_, err := r.Resolve(context.Background(), "/nonexistent/Cargo.toml")
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
	if !errors.Is(err, ErrManifestNotFound) {
		t.Errorf("error = %v, want ErrManifestNotFound", err)
	}
}

// cargoMetadataFixture is a trimmed cargo metadata --format-version 1
// output: one workspace root without a source, two registry packages, and
// a dev-only edge that must not provide a requirement.
const cargoMetadataFixture = `{
  "packages": [
    {
      "name": "myapp",
      "version": "0.1.0",
      "source": null,
      "dependencies": [
        {"name": "serde", "req": "^1.0.190", "kind": null},
        {"name": "tokio", "req": ">=1.35.0", "kind": null},
        {"name": "criterion", "req": "^0.5", "kind": "dev"}
      ]
    },
    {
      "name": "serde",
      "version": "1.0.200",
      "source": "registry+https://github.com/rust-lang/crates.io-index",
      "dependencies": []
    },
    {
      "name": "tokio",
      "version": "1.35.1",
      "source": "registry+https://github.com/rust-lang/crates.io-index",
      "dependencies": [
        {"name": "orphan", "req": "^2", "kind": "build"}
      ]
    },
    {
      "name": "orphan",
      "version": "2.1.0",
      "source": "registry+https://github.com/rust-lang/crates.io-index",
      "dependencies": []
    }
  ]
}`

// TestParseMetadata tests the conversion of cargo metadata JSON into
// dependency entries.
func TestParseMetadata(t *testing.T) {
	t.Parallel()

	entries, err := parseMetadata([]byte(cargoMetadataFixture))
	if err != nil {
		t.Fatalf("parseMetadata returned error: %v", err)
	}

	t.Run("workspace package excluded", func(t *testing.T) {
		t.Parallel()
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for _, e := range entries {
			if e.Name == "myapp" {
				t.Error("workspace-local package must be excluded")
			}
		}
	})

	t.Run("requirement from runtime edge", func(t *testing.T) {
		t.Parallel()
		serde := entries[0]
		if serde.Name != "serde" {
			t.Fatalf("entries[0].Name = %q, want serde", serde.Name)
		}
		if serde.Requirement.String() != "^1.0.190" {
			t.Errorf("Requirement = %q, want ^1.0.190", serde.Requirement.String())
		}
		if serde.Resolved.String() != "1.0.200" {
			t.Errorf("Resolved = %s, want 1.0.200", serde.Resolved)
		}
	})

	t.Run("non-runtime edge gives no requirement", func(t *testing.T) {
		t.Parallel()
		// orphan is only declared through a build edge, so it falls back
		// to an exact requirement on its resolved version.
		orphan := entries[2]
		if orphan.Name != "orphan" {
			t.Fatalf("entries[2].Name = %q, want orphan", orphan.Name)
		}
		if orphan.Requirement.String() != "=2.1.0" {
			t.Errorf("Requirement = %q, want =2.1.0", orphan.Requirement.String())
		}
	})

	t.Run("package order preserved", func(t *testing.T) {
		t.Parallel()
		wantOrder := []string{"serde", "tokio", "orphan"}
		for i, e := range entries {
			if e.Name != wantOrder[i] {
				t.Errorf("entries[%d].Name = %q, want %q", i, e.Name, wantOrder[i])
			}
		}
	})
}

// cargoMetadataGraphFixture carries a resolve graph: myapp depends on
// hyper and base64 0.22 at runtime and on mockall for dev only, while
// hyper pulls in a second base64 at 0.21.
const cargoMetadataGraphFixture = `{
  "packages": [
    {
      "id": "myapp-id",
      "name": "myapp",
      "version": "0.1.0",
      "source": null,
      "dependencies": [
        {"name": "hyper", "req": "^1.0", "kind": null},
        {"name": "base64", "req": "^0.22", "kind": null},
        {"name": "mockall", "req": "^0.12", "kind": "dev"}
      ]
    },
    {
      "id": "hyper-id",
      "name": "hyper",
      "version": "1.2.0",
      "source": "registry+https://github.com/rust-lang/crates.io-index",
      "dependencies": [
        {"name": "base64", "req": "^0.21", "kind": null}
      ]
    },
    {
      "id": "base64-old-id",
      "name": "base64",
      "version": "0.21.7",
      "source": "registry+https://github.com/rust-lang/crates.io-index",
      "dependencies": []
    },
    {
      "id": "base64-new-id",
      "name": "base64",
      "version": "0.22.1",
      "source": "registry+https://github.com/rust-lang/crates.io-index",
      "dependencies": []
    },
    {
      "id": "mockall-id",
      "name": "mockall",
      "version": "0.12.1",
      "source": "registry+https://github.com/rust-lang/crates.io-index",
      "dependencies": []
    }
  ],
  "workspace_members": ["myapp-id"],
  "resolve": {
    "nodes": [
      {
        "id": "myapp-id",
        "deps": [
          {"pkg": "hyper-id", "dep_kinds": [{"kind": null}]},
          {"pkg": "base64-new-id", "dep_kinds": [{"kind": null}]},
          {"pkg": "mockall-id", "dep_kinds": [{"kind": "dev"}]}
        ]
      },
      {
        "id": "hyper-id",
        "deps": [
          {"pkg": "base64-old-id", "dep_kinds": [{"kind": null}]}
        ]
      },
      {"id": "base64-old-id", "deps": []},
      {"id": "base64-new-id", "deps": []},
      {"id": "mockall-id", "deps": []}
    ]
  }
}`

// TestParseMetadataRuntimeClosure tests scoping against the resolve
// graph and requirement matching by resolved version.
func TestParseMetadataRuntimeClosure(t *testing.T) {
	t.Parallel()

	entries, err := parseMetadata([]byte(cargoMetadataGraphFixture))
	if err != nil {
		t.Fatalf("parseMetadata returned error: %v", err)
	}

	t.Run("dev-only package excluded", func(t *testing.T) {
		t.Parallel()
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		for _, e := range entries {
			if e.Name == "mockall" {
				t.Error("package reachable only through a dev edge must be excluded")
			}
		}
	})

	t.Run("each resolved version gets its own requirement", func(t *testing.T) {
		t.Parallel()
		want := map[string]string{
			"0.21.7": "^0.21",
			"0.22.1": "^0.22",
		}
		found := 0
		for _, e := range entries {
			if e.Name != "base64" {
				continue
			}
			found++
			if got := e.Requirement.String(); got != want[e.Resolved.String()] {
				t.Errorf("base64 %s requirement = %q, want %q",
					e.Resolved, got, want[e.Resolved.String()])
			}
		}
		if found != 2 {
			t.Errorf("expected both base64 versions, found %d", found)
		}
	})

	t.Run("runtime edge through intermediate kept", func(t *testing.T) {
		t.Parallel()
		hyper := entries[0]
		if hyper.Name != "hyper" {
			t.Fatalf("entries[0].Name = %q, want hyper", hyper.Name)
		}
		if hyper.Requirement.String() != "^1.0" {
			t.Errorf("Requirement = %q, want ^1.0", hyper.Requirement.String())
		}
	})
}

// TestParseMetadataErrors tests abort-on-malformed behavior.
func TestParseMetadataErrors(t *testing.T) {
	t.Parallel()

	t.Run("invalid JSON", func(t *testing.T) {
		t.Parallel()
		_, err := parseMetadata([]byte("not json"))
		if !errors.Is(err, ErrMetadataFailed) {
			t.Errorf("error = %v, want ErrMetadataFailed", err)
		}
	})

	t.Run("malformed version aborts", func(t *testing.T) {
		t.Parallel()
		bad := `{"packages": [{"name": "x", "version": "1.0", "source": "registry+x", "dependencies": []}]}`
		_, err := parseMetadata([]byte(bad))
		if err == nil {
			t.Error("expected error for partial version")
		}
	})

	t.Run("malformed requirement aborts", func(t *testing.T) {
		t.Parallel()
		bad := `{"packages": [
			{"name": "root", "version": "0.1.0", "source": null,
			 "dependencies": [{"name": "x", "req": "><", "kind": null}]},
			{"name": "x", "version": "1.0.0", "source": "registry+x", "dependencies": []}
		]}`
		_, err := parseMetadata([]byte(bad))
		if err == nil {
			t.Error("expected error for malformed requirement")
		}
	})

	t.Run("empty package list", func(t *testing.T) {
		t.Parallel()
		entries, err := parseMetadata([]byte(`{"packages": []}`))
		if err != nil {
			t.Fatalf("parseMetadata returned error: %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("expected no entries, got %d", len(entries))
		}
	})
}
