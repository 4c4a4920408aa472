package config

import (
	"reflect"
	"testing"
)

func TestParseListenerArg(t *testing.T) {
	arg := "board_name=my-board:env_config=env.json:inventory_config=inv.json:" +
		"skip_boot=true:save_console_logs=./logs:ignore_devices=wan,lan"

	opts, err := ParseListenerArg(arg)
	if err != nil {
		t.Fatalf("ParseListenerArg: %v", err)
	}

	if opts.BoardName != "my-board" {
		t.Errorf("BoardName = %q", opts.BoardName)
	}
	if opts.EnvConfig != "env.json" || opts.InventoryConfig != "inv.json" {
		t.Errorf("config paths = %q, %q", opts.EnvConfig, opts.InventoryConfig)
	}
	if !opts.SkipBoot {
		t.Error("SkipBoot should be true")
	}
	if opts.SkipContingencyChecks {
		t.Error("SkipContingencyChecks should default to false")
	}
	if opts.SaveConsoleLogs != "./logs" {
		t.Errorf("SaveConsoleLogs = %q", opts.SaveConsoleLogs)
	}
	if want := []string{"wan", "lan"}; !reflect.DeepEqual(opts.IgnoreDevices, want) {
		t.Errorf("IgnoreDevices = %v, want %v", opts.IgnoreDevices, want)
	}
}

func TestParseListenerArg_DashNormalization(t *testing.T) {
	opts, err := ParseListenerArg("board-name=b:env-config=e:inventory-config=i:skip-boot=yes")
	if err != nil {
		t.Fatalf("ParseListenerArg: %v", err)
	}
	if opts.BoardName != "b" || !opts.SkipBoot {
		t.Errorf("dash-form options not normalized: %+v", opts)
	}
}

func TestParseListenerArg_BoolForms(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"nonsense", false},
	}

	for _, tt := range tests {
		opts, err := ParseListenerArg("legacy=" + tt.value)
		if err != nil {
			t.Fatalf("ParseListenerArg(legacy=%q): %v", tt.value, err)
		}
		if opts.Legacy != tt.want {
			t.Errorf("legacy=%q parsed as %v, want %v", tt.value, opts.Legacy, tt.want)
		}
	}
}

func TestParseListenerArg_UnknownOption(t *testing.T) {
	if _, err := ParseListenerArg("board_name=b:bogus_option=1"); err == nil {
		t.Fatal("expected error for unknown option")
	}
}

func TestBuildListenerArg_RoundTrip(t *testing.T) {
	opts := &RunOptions{
		BoardName:             "my-board",
		EnvConfig:             "env.json",
		InventoryConfig:       "inv.json",
		SkipContingencyChecks: true,
		IgnoreDevices:         []string{"wan", "lan"},
	}

	arg := BuildListenerArg("bfrobot.Listener", opts)

	name, rest, found := splitListenerName(arg)
	if !found || name != "bfrobot.Listener" {
		t.Fatalf("listener arg missing name prefix: %q", arg)
	}

	parsed, err := ParseListenerArg(rest)
	if err != nil {
		t.Fatalf("ParseListenerArg: %v", err)
	}
	if !reflect.DeepEqual(parsed, opts) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, opts)
	}
}

// splitListenerName splits "name:options" into its parts for the test.
func splitListenerName(arg string) (name, rest string, found bool) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == ':' {
			return arg[:i], arg[i+1:], true
		}
	}
	return arg, "", false
}

func TestRunOptionsValidate(t *testing.T) {
	opts := &RunOptions{BoardName: "b", EnvConfig: "e", InventoryConfig: "i"}
	if err := opts.Validate(); err != nil {
		t.Errorf("complete options should validate: %v", err)
	}

	missing := &RunOptions{BoardName: "b"}
	if err := missing.Validate(); err == nil {
		t.Error("missing required options should fail validation")
	}
}

func TestIgnored(t *testing.T) {
	opts := &RunOptions{IgnoreDevices: []string{"wan"}}
	if !opts.Ignored("wan") {
		t.Error("wan should be ignored")
	}
	if opts.Ignored("lan") {
		t.Error("lan should not be ignored")
	}
}
