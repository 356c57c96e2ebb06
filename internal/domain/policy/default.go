package policy

import (
	_ "embed"
)

//go:embed default_policy.json
var defaultPolicy []byte

// DefaultDocument returns a copy of the built-in policy document.
func DefaultDocument() []byte {
	out := make([]byte, len(defaultPolicy))
	copy(out, defaultPolicy)
	return out
}

// DefaultTree loads the built-in policy document.
func DefaultTree(opts ...LoadOption) (*Tree, error) {
	return LoadTree(defaultPolicy, opts...)
}
