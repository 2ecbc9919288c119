// Package semver implements the version arithmetic behind update decisions and
// peer-conflict classification.
//
// # Parsing
//
// [Parse] is deliberately strict: it accepts "1.2.3", "^1.2.3" and "~1.2.3"
// (pre-release suffixes are dropped) and reports ok == false for everything
// else. Unparsable input is never an error; it is a "cannot classify" outcome
// that callers must handle, typically by reporting [DiffLatest] or by treating
// a peer conflict as an error.
//
// # Policies
//
// [PickTarget] decides whether a registry's latest version is an acceptable
// update under a [Policy]:
//
//	semver.PickTarget("^1.2.3", "1.2.9", semver.PolicyPatch) // "1.2.9", true
//	semver.PickTarget("^1.2.3", "1.3.0", semver.PolicyPatch) // "", false
//	semver.PickTarget("^1.2.3", "2.0.0", semver.PolicyLatest) // "2.0.0", true
//
// [ApplyRangeStyle] then rewrites the declared range keeping its operator, so
// "^1.2.3" becomes "^1.2.9" and "~1.2.3" becomes "~1.2.9".
//
// # Ranges
//
// Range containment ([Satisfies], [MaxSatisfying]) follows npm semantics and is
// backed by github.com/Masterminds/semver/v3.
package semver
