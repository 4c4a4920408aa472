package envreq

import (
	"encoding/json"
	"strings"
	"testing"
)

// envWithMode builds an environment document with the given provisioning mode.
func envWithMode(mode string) map[string]interface{} {
	return map[string]interface{}{
		"environment_def": map[string]interface{}{
			"board": map[string]interface{}{
				"eRouter_Provisioning_mode": mode,
			},
		},
	}
}

func TestMatches_NilRequirementIsWildcard(t *testing.T) {
	ok, err := Matches(nil, "any_value")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("nil requirement should match any environment")
	}
}

func TestMatches_SubsetMap(t *testing.T) {
	req := map[string]interface{}{"key": "value"}
	env := map[string]interface{}{"key": "value", "other": "data"}

	ok, err := Matches(req, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("subset map should match")
	}
}

func TestMatches_MissingPathFails(t *testing.T) {
	req := map[string]interface{}{"absent": "value"}
	env := map[string]interface{}{"present": "value"}

	ok, err := Matches(req, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("requirement path missing from environment should not match")
	}
}

func TestMatches_ListRequirementAgainstScalar(t *testing.T) {
	tests := []struct {
		name string
		req  []interface{}
		env  interface{}
		want bool
	}{
		{"member", []interface{}{"opt1", "opt2"}, "opt1", true},
		{"not member", []interface{}{"opt1", "opt2"}, "opt3", false},
		{"numeric member", []interface{}{float64(1), float64(2)}, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Matches(tt.req, tt.env)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Matches(%v, %v) = %v, want %v", tt.req, tt.env, ok, tt.want)
			}
		})
	}
}

func TestMatches_ScalarRequirementAgainstList(t *testing.T) {
	ok, err := Matches("dual", []interface{}{"ipv4", "dual"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("scalar should match list containing it")
	}
}

func TestMatches_MapRequirementAgainstList(t *testing.T) {
	req := map[string]interface{}{"role": "lan"}
	env := []interface{}{
		map[string]interface{}{"role": "wan"},
		map[string]interface{}{"role": "lan"},
	}

	ok, err := Matches(req, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("map requirement should match any list element")
	}
}

func TestMatches_NestedProvisioningMode(t *testing.T) {
	var req map[string]interface{}
	raw := `{"environment_def":{"board":{"eRouter_Provisioning_mode":["dual"]}}}`
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unmarshal requirement: %v", err)
	}

	ok, err := Matches(req, envWithMode("dual"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("dual mode should satisfy dual requirement")
	}

	ok, err = Matches(req, envWithMode("ipv4"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("ipv4 mode should not satisfy dual requirement")
	}
}

func TestMatches_ContainsChecks(t *testing.T) {
	tests := []struct {
		name  string
		check string
		value string
		env   string
		want  bool
	}{
		{"exact hit", "contains_exact", "docsis", "docsis-3.1", true},
		{"exact miss", "contains_exact", "gpon", "docsis-3.1", false},
		{"not exact", "not_contains_exact", "gpon", "docsis-3.1", true},
		{"regex hit", "contains_regex", `docsis-\d\.\d`, "docsis-3.1", true},
		{"not regex", "not_contains_regex", `gpon`, "docsis-3.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := []interface{}{
				map[string]interface{}{tt.check: tt.value},
			}
			ok, err := Matches(req, tt.env)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("check %s(%q) against %q = %v, want %v",
					tt.check, tt.value, tt.env, ok, tt.want)
			}
		})
	}
}

func TestMatches_InvalidContainsCheckIsError(t *testing.T) {
	req := []interface{}{
		map[string]interface{}{"contains_fuzzy": "x"},
	}

	_, err := Matches(req, "some environment string")
	if err == nil {
		t.Fatal("expected error for unknown contains check")
	}
}

func TestMatches_InvalidCheckAfterFailingCheckIsError(t *testing.T) {
	// The unknown check name must surface as an error even when an
	// earlier check in the sequence already failed.
	req := []interface{}{
		map[string]interface{}{"contains_exact": "absent"},
		map[string]interface{}{"bogus_check": "x"},
	}

	_, err := Matches(req, "docsis-3.1")
	if err == nil {
		t.Fatal("expected error for unknown contains check after a failing check")
	}
	if !strings.Contains(err.Error(), "bogus_check") {
		t.Errorf("error should name the invalid check, got %v", err)
	}
}

func TestMatches_InvalidRegexIsError(t *testing.T) {
	req := []interface{}{
		map[string]interface{}{"contains_regex": "(unclosed"},
	}

	_, err := Matches(req, "value")
	if err == nil {
		t.Fatal("expected error for invalid regex pattern")
	}
}

func TestMatches_ListAgainstListAllMustMatch(t *testing.T) {
	req := []interface{}{"a", "b"}
	env := []interface{}{"a", "b", "c"}

	ok, err := Matches(req, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("all requirement items present in environment list should match")
	}

	ok, err = Matches([]interface{}{"a", "z"}, env)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("missing requirement item should not match")
	}
}
