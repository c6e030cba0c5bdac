package semver

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// TestParseVersion tests strict version parsing.
// Each rejection case covers one shape the parser must not coerce.
func TestParseVersion(t *testing.T) {
	t.Parallel()

	t.Run("valid versions", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			input string
			major uint64
			minor uint64
			patch uint64
		}{
			{"0.0.0", 0, 0, 0},
			{"1.0.200", 1, 0, 200},
			{"0.9.0", 0, 9, 0},
			{"10.20.30", 10, 20, 30},
		}

		for _, tt := range tests {
			v, err := ParseVersion(tt.input)
			if err != nil {
				t.Errorf("ParseVersion(%q) returned error: %v", tt.input, err)
				continue
			}
			if v.Major() != tt.major || v.Minor() != tt.minor || v.Patch() != tt.patch {
				t.Errorf("ParseVersion(%q) = %d.%d.%d, want %d.%d.%d",
					tt.input, v.Major(), v.Minor(), v.Patch(), tt.major, tt.minor, tt.patch)
			}
		}
	})

	t.Run("invalid versions", func(t *testing.T) {
		t.Parallel()

		invalid := []string{
			"",
			"1",
			"1.2",
			"1.2.3.4",
			"1.2.x",
			"1.2.3-alpha",
			"1.2.3+build",
			"v1.2.3",
			"1..3",
			"1.+2.3",
			"a.b.c",
		}

		for _, input := range invalid {
			_, err := ParseVersion(input)
			if err == nil {
				t.Errorf("ParseVersion(%q) succeeded, want error", input)
				continue
			}
			if !errors.Is(err, ErrInvalidVersion) {
				t.Errorf("ParseVersion(%q) error = %v, want ErrInvalidVersion", input, err)
			}
		}
	})

	t.Run("error message quotes the input", func(t *testing.T) {
		t.Parallel()

		_, err := ParseVersion("1.2")
		if err == nil {
			t.Fatal("expected error")
		}
		if got := err.Error(); !strings.Contains(got, `"1.2"`) {
			t.Errorf("error %q does not quote the input", got)
		}
	})
}

// TestVersionCompare tests the (major, minor, patch) ordering.
func TestVersionCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a    string
		b    string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.2.0", "1.10.0", -1},
		{"1.0.2", "1.0.10", -1},
		{"0.9.9", "1.0.0", -1},
	}

	for _, tt := range tests {
		a := MustParseVersion(tt.a)
		b := MustParseVersion(tt.b)
		if got := a.Compare(b); got != tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := b.Compare(a); got != -tt.want {
			t.Errorf("Compare(%s, %s) = %d, want %d", tt.b, tt.a, got, -tt.want)
		}
	}

	t.Run("numeric not lexicographic", func(t *testing.T) {
		t.Parallel()
		// "1.0.9" sorts before "1.0.10" numerically, after it as strings
		a := MustParseVersion("1.0.9")
		b := MustParseVersion("1.0.10")
		if !a.LessThan(b) {
			t.Error("expected 1.0.9 < 1.0.10")
		}
	})
}

// TestVersionJSON tests the canonical string round trip.
func TestVersionJSON(t *testing.T) {
	t.Parallel()

	v := MustParseVersion("1.0.200")
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `"1.0.200"` {
		t.Errorf("Marshal = %s, want \"1.0.200\"", data)
	}

	var decoded Version
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if !decoded.Equal(v) {
		t.Errorf("round trip = %s, want %s", decoded, v)
	}

	t.Run("rejects invalid string", func(t *testing.T) {
		t.Parallel()
		var v Version
		if err := json.Unmarshal([]byte(`"1.2"`), &v); err == nil {
			t.Error("expected error for partial version")
		}
	})
}

// TestParseRequirement tests cargo-style requirement parsing, in particular
// the implicit caret on bare versions and its zero-leading special cases.
func TestParseRequirement(t *testing.T) {
	t.Parallel()

	t.Run("bare version means caret", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			req     string
			version string
			want    bool
		}{
			// ^1 accepts >=1.0.0 <2.0.0
			{"1", "1.0.0", true},
			{"1", "1.41.0", true},
			{"1", "2.0.0", false},
			{"1", "0.9.0", false},

			// ^1.2.3 accepts >=1.2.3 <2.0.0
			{"1.2.3", "1.2.3", true},
			{"1.2.3", "1.9.0", true},
			{"1.2.3", "1.2.2", false},
			{"1.2.3", "2.0.0", false},

			// ^0.3 stays below 0.4.0
			{"0.3", "0.3.0", true},
			{"0.3", "0.3.9", true},
			{"0.3", "0.4.0", false},
			{"0.3", "1.0.0", false},

			// ^0.0.3 is exact
			{"0.0.3", "0.0.3", true},
			{"0.0.3", "0.0.4", false},
		}

		for _, tt := range tests {
			r := MustParseRequirement(tt.req)
			v := MustParseVersion(tt.version)
			if got := r.Check(v); got != tt.want {
				t.Errorf("Check(%q, %s) = %v, want %v", tt.req, tt.version, got, tt.want)
			}
		}
	})

	t.Run("explicit operators", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			req     string
			version string
			want    bool
		}{
			{"=1.2.3", "1.2.3", true},
			{"=1.2.3", "1.2.4", false},
			{">=1.0.200", "1.0.200", true},
			{">=1.0.200", "1.0.210", true},
			{">=1.0.200", "1.0.195", false},
			{"<2.0.0", "1.9.9", true},
			{"<2.0.0", "2.0.0", false},
			{"~1.2.0", "1.2.9", true},
			{"~1.2.0", "1.3.0", false},
			{"^2", "2.0.0", true},
			{"^2", "1.41.0", false},
		}

		for _, tt := range tests {
			r := MustParseRequirement(tt.req)
			v := MustParseVersion(tt.version)
			if got := r.Check(v); got != tt.want {
				t.Errorf("Check(%q, %s) = %v, want %v", tt.req, tt.version, got, tt.want)
			}
		}
	})

	t.Run("comma-separated clauses are AND", func(t *testing.T) {
		t.Parallel()

		r := MustParseRequirement(">=1.2.0, <1.5.0")
		if !r.Check(MustParseVersion("1.3.0")) {
			t.Error("expected 1.3.0 to satisfy >=1.2.0, <1.5.0")
		}
		if r.Check(MustParseVersion("1.5.0")) {
			t.Error("expected 1.5.0 to fail >=1.2.0, <1.5.0")
		}
		if r.Check(MustParseVersion("1.1.0")) {
			t.Error("expected 1.1.0 to fail >=1.2.0, <1.5.0")
		}
	})

	t.Run("wildcard accepts anything", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"*", "", "  "} {
			r, err := ParseRequirement(raw)
			if err != nil {
				t.Fatalf("ParseRequirement(%q) returned error: %v", raw, err)
			}
			if !r.Check(MustParseVersion("0.0.1")) || !r.Check(MustParseVersion("99.0.0")) {
				t.Errorf("ParseRequirement(%q) should accept any version", raw)
			}
		}
	})

	t.Run("invalid requirements", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{">=", "one.two", "1.2.3,", "><1.0.0"} {
			_, err := ParseRequirement(raw)
			if err == nil {
				t.Errorf("ParseRequirement(%q) succeeded, want error", raw)
				continue
			}
			if !errors.Is(err, ErrInvalidRequirement) {
				t.Errorf("ParseRequirement(%q) error = %v, want ErrInvalidRequirement", raw, err)
			}
		}
	})

	t.Run("String returns source form", func(t *testing.T) {
		t.Parallel()

		r := MustParseRequirement("^0.9")
		if r.String() != "^0.9" {
			t.Errorf("String() = %q, want \"^0.9\"", r.String())
		}
	})

	t.Run("zero value satisfies nothing", func(t *testing.T) {
		t.Parallel()

		var r Requirement
		if r.Check(MustParseVersion("1.0.0")) {
			t.Error("zero-value requirement should satisfy nothing")
		}
	})
}

// TestRequirementJSON tests the source-string round trip.
func TestRequirementJSON(t *testing.T) {
	t.Parallel()

	r := MustParseRequirement(">=1.0.200")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if string(data) != `">=1.0.200"` {
		t.Errorf("Marshal = %s, want \">=1.0.200\"", data)
	}

	var decoded Requirement
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if !decoded.Check(MustParseVersion("1.0.210")) {
		t.Error("decoded requirement lost its constraint")
	}
}

// TestMaxSatisfying tests satisfying-candidate selection.
func TestMaxSatisfying(t *testing.T) {
	t.Parallel()

	versions := func(raws ...string) []Version {
		vs := make([]Version, 0, len(raws))
		for _, raw := range raws {
			vs = append(vs, MustParseVersion(raw))
		}
		return vs
	}

	t.Run("picks highest satisfying", func(t *testing.T) {
		t.Parallel()

		r := MustParseRequirement("^1.2")
		got, ok := MaxSatisfying(r, versions("1.2.0", "1.5.0", "1.3.0", "2.0.0"))
		if !ok {
			t.Fatal("expected a satisfying version")
		}
		if got.String() != "1.5.0" {
			t.Errorf("MaxSatisfying = %s, want 1.5.0", got)
		}
	})

	t.Run("none satisfying", func(t *testing.T) {
		t.Parallel()

		r := MustParseRequirement("^2")
		_, ok := MaxSatisfying(r, versions("1.0.0", "1.5.0"))
		if ok {
			t.Error("expected no satisfying version")
		}
	})

	t.Run("order independent", func(t *testing.T) {
		t.Parallel()

		r := MustParseRequirement("*")
		a, _ := MaxSatisfying(r, versions("1.0.0", "3.0.0", "2.0.0"))
		b, _ := MaxSatisfying(r, versions("3.0.0", "2.0.0", "1.0.0"))
		if !a.Equal(b) {
			t.Errorf("result depends on candidate order: %s vs %s", a, b)
		}
	})
}

// TestMax tests unconstrained maximum selection.
func TestMax(t *testing.T) {
	t.Parallel()

	t.Run("empty slice", func(t *testing.T) {
		t.Parallel()
		if _, ok := Max(nil); ok {
			t.Error("expected no maximum for empty candidates")
		}
	})

	t.Run("picks highest", func(t *testing.T) {
		t.Parallel()
		got, ok := Max([]Version{
			MustParseVersion("1.0.10"),
			MustParseVersion("1.0.9"),
			MustParseVersion("0.9.0"),
		})
		if !ok {
			t.Fatal("expected a maximum")
		}
		if got.String() != "1.0.10" {
			t.Errorf("Max = %s, want 1.0.10", got)
		}
	})
}
