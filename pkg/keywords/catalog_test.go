package keywords

import (
	"errors"
	"testing"
)

func TestDeriveName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"get_device_by_type", "Get Device By Type"},
		{"reboot_CPE", "Reboot CPE"},
		{"log_step", "Log Step"},
		{"check_DHCP_lease", "Check DHCP Lease"},
		{"single", "Single"},
	}
	for _, tt := range tests {
		if got := DeriveName(tt.in); got != tt.want {
			t.Errorf("DeriveName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCatalog_RegisterAndRun(t *testing.T) {
	cat := NewCatalog()

	err := cat.Register("acme", "add_numbers", "Adds two integers.", nil, func(a, b int) int {
		return a + b
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	out, err := cat.Run("Add Numbers", 2, 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 1 || out[0] != 5 {
		t.Errorf("Run = %v, want [5]", out)
	}
}

func TestCatalog_LookupNormalization(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Register("acme", "reboot_CPE", "", nil, func() {}); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"Reboot CPE", "reboot cpe", "reboot_cpe", "RebootCPE"} {
		if _, err := cat.Lookup(name); err != nil {
			t.Errorf("Lookup(%q): %v", name, err)
		}
	}
}

func TestCatalog_CollisionRejected(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Register("first", "do_thing", "", nil, func() {}); err != nil {
		t.Fatal(err)
	}

	err := cat.Register("second", "do_thing", "", nil, func() {})
	var ce *CollisionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CollisionError, got %v", err)
	}
	if ce.Existing != "first" || ce.Incoming != "second" {
		t.Errorf("collision modules = %q/%q", ce.Existing, ce.Incoming)
	}

	// The original registration must survive untouched.
	kw, err := cat.Lookup("Do Thing")
	if err != nil {
		t.Fatal(err)
	}
	if kw.Module != "first" {
		t.Errorf("surviving module = %q, want first", kw.Module)
	}
}

func TestCatalog_UnknownKeyword(t *testing.T) {
	cat := NewCatalog()
	_, err := cat.Run("No Such Keyword")
	var uk *UnknownKeywordError
	if !errors.As(err, &uk) {
		t.Fatalf("expected *UnknownKeywordError, got %v", err)
	}
}

func TestCatalog_RunErrorResult(t *testing.T) {
	cat := NewCatalog()
	failure := errors.New("device unreachable")
	if err := cat.Register("acme", "failing_keyword", "", nil, func() error {
		return failure
	}); err != nil {
		t.Fatal(err)
	}

	_, err := cat.Run("Failing Keyword")
	if !errors.Is(err, failure) {
		t.Errorf("Run error = %v", err)
	}
}

func TestCatalog_StringArgumentCoercion(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Register("acme", "pick_index", "", nil, func(name string, index int) string {
		if index == 1 {
			return name + "-second"
		}
		return name
	}); err != nil {
		t.Fatal(err)
	}

	// Engine arguments arrive as text.
	out, err := cat.Run("Pick Index", "lan", "1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out[0] != "lan-second" {
		t.Errorf("Run = %v", out)
	}

	if _, err := cat.Run("Pick Index", "lan", "not-a-number"); err == nil {
		t.Error("expected coercion error for non-numeric index")
	}
}

func TestCatalog_ArgumentCountMismatch(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Register("acme", "two_args", "", nil, func(a, b string) {}); err != nil {
		t.Fatal(err)
	}
	if _, err := cat.Run("Two Args", "only-one"); err == nil {
		t.Error("expected argument count error")
	}
}

func TestCatalog_Introspection(t *testing.T) {
	cat := NewCatalog()
	if err := cat.Register("acme", "check_lease", "Checks the DHCP lease.", []string{"dhcp"}, func(iface string) error {
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	doc, err := cat.Documentation("Check Lease")
	if err != nil || doc != "Checks the DHCP lease." {
		t.Errorf("Documentation = %q, %v", doc, err)
	}

	args, err := cat.ArgumentsOf("Check Lease")
	if err != nil || len(args) != 1 || args[0] != "string" {
		t.Errorf("ArgumentsOf = %v, %v", args, err)
	}

	tags, err := cat.TagsOf("Check Lease")
	if err != nil || len(tags) != 1 || tags[0] != "dhcp" {
		t.Errorf("TagsOf = %v, %v", tags, err)
	}
}

func TestCatalog_Names(t *testing.T) {
	cat := NewCatalog()
	for _, name := range []string{"zeta_keyword", "alpha_keyword"} {
		if err := cat.Register("acme", name, "", nil, func() {}); err != nil {
			t.Fatal(err)
		}
	}
	names := cat.Names()
	if len(names) != 2 || names[0] != "Alpha Keyword" || names[1] != "Zeta Keyword" {
		t.Errorf("Names() = %v", names)
	}
}
