package semver

import (
	"strings"

	"github.com/matzehuels/peerguard/pkg/errors"
)

// Policy is the requested upgrade aggressiveness.
type Policy string

const (
	PolicyPatch  Policy = "patch"
	PolicyMinor  Policy = "minor"
	PolicyMajor  Policy = "major"
	PolicyLatest Policy = "latest"
)

// Policies lists every policy in increasing aggressiveness.
var Policies = []Policy{PolicyPatch, PolicyMinor, PolicyMajor, PolicyLatest}

// ParsePolicy converts s (case-insensitive) to a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Policies {
		if p == known {
			return p, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidPolicy, "unknown update policy %q (want patch, minor, major or latest)", s)
}

// DiffType is the semantic distance between two versions.
type DiffType string

const (
	DiffPatch  DiffType = "patch"
	DiffMinor  DiffType = "minor"
	DiffMajor  DiffType = "major"
	DiffLatest DiffType = "latest"
)

// NonBreaking reports whether d stays within the same major version.
func (d DiffType) NonBreaking() bool {
	return d == DiffPatch || d == DiffMinor
}
