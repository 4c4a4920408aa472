// Package envreq parses and evaluates declarative environment requirements.
// A requirement is either a named preset or an inline JSON document whose
// shape mirrors the environment definition; it gates whether a test may run
// against the currently deployed testbed.
package envreq

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TagPrefix is the literal prefix that marks a test tag as an
// environment requirement, e.g. "env_req:dual_stack".
const TagPrefix = "env_req:"

// ParseError indicates a malformed requirement expression. It is a
// configuration error, distinct from a well-formed requirement that the
// environment simply does not satisfy.
type ParseError struct {
	// Expr is the offending requirement expression.
	Expr string

	// Err is the underlying decode error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid environment requirement %q: %v", e.Expr, e.Err)
	}
	return fmt.Sprintf("invalid environment requirement %q: not a known preset or JSON document", e.Expr)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Requirement is a parsed environment requirement.
type Requirement struct {
	// Expr is the original expression the requirement was parsed from.
	Expr string `json:"expr"`

	// Preset is the preset name, if the expression named one.
	Preset string `json:"preset,omitempty"`

	// Doc is the structured requirement document evaluated against the
	// environment configuration.
	Doc map[string]interface{} `json:"doc"`
}

// Parse parses a requirement expression.
//
// The expression is either a preset name from the closed enumeration
// (see PresetNames) or an inline JSON object literal. Anything else is a
// *ParseError: unknown preset names are rejected rather than silently
// matching everything.
func Parse(expr string) (*Requirement, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, &ParseError{Expr: expr}
	}

	if doc, ok := Preset(trimmed); ok {
		return &Requirement{Expr: trimmed, Preset: trimmed, Doc: doc}, nil
	}

	if strings.HasPrefix(trimmed, "{") {
		var doc map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return nil, &ParseError{Expr: trimmed, Err: err}
		}
		return &Requirement{Expr: trimmed, Doc: doc}, nil
	}

	return nil, &ParseError{Expr: trimmed}
}

// SatisfiedBy reports whether the environment configuration satisfies the
// requirement. The returned error indicates a malformed contains-check
// inside the requirement document, not an unmet requirement.
func (r *Requirement) SatisfiedBy(env interface{}) (bool, error) {
	return Matches(r.Doc, env)
}

// ExtractTag returns the requirement expression from the first tag carrying
// the env_req prefix. ok is false when no tag declares a requirement, in
// which case the test runs unconditionally.
func ExtractTag(tags []string) (expr string, ok bool) {
	for _, tag := range tags {
		if strings.HasPrefix(tag, TagPrefix) {
			return tag[len(TagPrefix):], true
		}
	}
	return "", false
}

// ProvisioningModePath is the environment definition path constrained by
// the built-in presets.
const ProvisioningModePath = "environment_def.board.eRouter_Provisioning_mode"

// presets is the closed enumeration of named requirements.
var presets = map[string][]string{
	"dual_stack": {"dual"},
	"ipv4_only":  {"ipv4"},
	"ipv6_only":  {"ipv6"},
}

// Preset returns the requirement document for a preset name.
func Preset(name string) (map[string]interface{}, bool) {
	modes, ok := presets[name]
	if !ok {
		return nil, false
	}
	allowed := make([]interface{}, len(modes))
	for i, m := range modes {
		allowed[i] = m
	}
	return map[string]interface{}{
		"environment_def": map[string]interface{}{
			"board": map[string]interface{}{
				"eRouter_Provisioning_mode": allowed,
			},
		},
	}, true
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
