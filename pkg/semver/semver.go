package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Parsed is the numeric core of a version string. Pre-release and build
// metadata are discarded.
type Parsed struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// String formats p as "major.minor.patch".
func (p Parsed) String() string {
	return fmt.Sprintf("%d.%d.%d", p.Major, p.Minor, p.Patch)
}

// Parse extracts the numeric core of raw. A single leading "^" or "~" is
// stripped and everything from the first "-" is dropped; the remainder must be
// exactly three dot-separated non-negative integers. ok is false otherwise, and
// callers must treat that as "cannot classify" rather than as an error.
func Parse(raw string) (p Parsed, ok bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "^") || strings.HasPrefix(s, "~") {
		s = s[1:]
	}
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Parsed{}, false
	}
	var nums [3]int
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return Parsed{}, false
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Parsed{}, false
		}
		nums[i] = n
	}
	return Parsed{Major: nums[0], Minor: nums[1], Patch: nums[2]}, true
}

// Compare orders a and b on (major, minor, patch), returning -1, 0 or +1.
func Compare(a, b Parsed) int {
	switch {
	case a.Major != b.Major:
		return sign(a.Major - b.Major)
	case a.Minor != b.Minor:
		return sign(a.Minor - b.Minor)
	default:
		return sign(a.Patch - b.Patch)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// ClassifyDiff reports the semantic distance from currentRange to nextVersion.
// DiffLatest is returned when either side cannot be parsed, so an unparsable
// comparison is never reported as a patch.
func ClassifyDiff(currentRange, nextVersion string) DiffType {
	cur, ok := Parse(currentRange)
	if !ok {
		return DiffLatest
	}
	next, ok := Parse(nextVersion)
	if !ok {
		return DiffLatest
	}
	switch {
	case cur.Major != next.Major:
		return DiffMajor
	case cur.Minor != next.Minor:
		return DiffMinor
	default:
		return DiffPatch
	}
}

// PickTarget decides whether latestVersion is an acceptable update of
// currentRange under policy and returns it verbatim when it is.
//
//   - PolicyPatch: same major and minor, strictly greater patch
//   - PolicyMinor: same major, strictly greater
//   - PolicyMajor: strictly greater
//   - PolicyLatest: the candidate, bypassing every boundary; only a candidate
//     equal to the current version is refused
func PickTarget(currentRange, latestVersion string, policy Policy) (string, bool) {
	if latestVersion == "" {
		return "", false
	}
	cur, curOK := Parse(currentRange)
	next, nextOK := Parse(latestVersion)

	if policy == PolicyLatest {
		if curOK && nextOK && Compare(cur, next) == 0 {
			return "", false
		}
		return latestVersion, true
	}
	if !curOK || !nextOK || Compare(next, cur) <= 0 {
		return "", false
	}

	switch policy {
	case PolicyPatch:
		if next.Major == cur.Major && next.Minor == cur.Minor {
			return latestVersion, true
		}
	case PolicyMinor:
		if next.Major == cur.Major {
			return latestVersion, true
		}
	case PolicyMajor:
		return latestVersion, true
	}
	return "", false
}

// rangePrefixes lists the operators ApplyRangeStyle preserves. Two-character
// operators come first so ">=" is not mistaken for ">".
var rangePrefixes = []string{">=", "<=", "^", "~", ">", "<", "="}

// RangePrefix returns the recognized operator prefix of r, or "".
func RangePrefix(r string) string {
	r = strings.TrimSpace(r)
	for _, p := range rangePrefixes {
		if strings.HasPrefix(r, p) {
			return p
		}
	}
	return ""
}

// ApplyRangeStyle substitutes newVersion into previousRange while keeping its
// operator prefix. Unrecognized prefixes produce a bare pin.
func ApplyRangeStyle(previousRange, newVersion string) string {
	return RangePrefix(previousRange) + strings.TrimSpace(newVersion)
}
