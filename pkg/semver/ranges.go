package semver

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Satisfies reports whether version falls inside rangeExpr using npm-style
// range semantics ("||" alternatives, hyphen ranges, x-ranges, caret/tilde).
// An error is returned when either side cannot be parsed.
func Satisfies(version, rangeExpr string) (bool, error) {
	v, err := mm.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false, fmt.Errorf("semver: parse version %q: %w", version, err)
	}
	c, err := mm.NewConstraint(normalizeRange(rangeExpr))
	if err != nil {
		return false, fmt.Errorf("semver: parse range %q: %w", rangeExpr, err)
	}
	return c.Check(v), nil
}

// MaxSatisfying returns the highest of candidates that satisfies rangeExpr.
// Unparsable candidates are skipped.
func MaxSatisfying(rangeExpr string, candidates []string) (string, bool) {
	c, err := mm.NewConstraint(normalizeRange(rangeExpr))
	if err != nil {
		return "", false
	}
	var best *mm.Version
	var bestRaw string
	for _, raw := range candidates {
		v, err := mm.NewVersion(raw)
		if err != nil || !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	return bestRaw, best != nil
}

// Sort orders versions ascending by semver precedence in place. Unparsable
// entries sort after every valid version, lexically among themselves.
func Sort(versions []string) {
	parsed := make(map[string]*mm.Version, len(versions))
	for _, raw := range versions {
		if v, err := mm.NewVersion(raw); err == nil {
			parsed[raw] = v
		}
	}
	slices.SortStableFunc(versions, func(a, b string) int {
		va, vb := parsed[a], parsed[b]
		switch {
		case va != nil && vb != nil:
			return va.Compare(vb)
		case va != nil:
			return -1
		case vb != nil:
			return 1
		}
		return cmp.Compare(a, b)
	})
}

// BaseVersion extracts the version of the first comparator in the first
// alternative of rangeExpr, e.g. "18.0.0" from "^18.0.0 || ^19.0.0" or
// "16.8.0" from ">= 16.8.0 < 19". ok is false when that version is not a full
// major.minor.patch triple.
func BaseVersion(rangeExpr string) (Parsed, bool) {
	alt, _, _ := strings.Cut(rangeExpr, "||")
	for _, field := range strings.Fields(alt) {
		token := strings.TrimLeft(field, "<>=^~v")
		if token == "" {
			continue
		}
		return Parse(token)
	}
	return Parsed{}, false
}

// nonRegistryPrefixes mark ranges that do not resolve against a registry.
var nonRegistryPrefixes = []string{
	"workspace:", "file:", "link:", "portal:", "patch:", "npm:",
	"git:", "git+", "github:", "gitlab:", "bitbucket:", "http:", "https:",
}

// IsRegistryRange reports whether raw is a semver range that a registry can
// answer, as opposed to a workspace protocol, a local path, a git or tarball
// URL, an alias or a dist-tag.
func IsRegistryRange(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, p := range nonRegistryPrefixes {
		if strings.HasPrefix(lower, p) {
			return false
		}
	}
	if strings.Contains(s, "/") {
		return false
	}
	_, err := mm.NewConstraint(normalizeRange(s))
	return err == nil
}

// normalizeRange rewrites npm spellings Masterminds does not accept.
func normalizeRange(r string) string {
	r = strings.TrimSpace(r)
	if r == "" {
		return "*"
	}
	return r
}
