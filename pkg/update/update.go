// Package update decides, per declared dependency, whether a newer version
// is allowed by an update policy and how the declared range should change.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/deps"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/observability"
	"github.com/matzehuels/peerguard/pkg/semver"
	"github.com/matzehuels/peerguard/pkg/versions"
)

// PackageUpdate is one proposed range change. It is only produced when
// ToRange differs from FromRange.
type PackageUpdate struct {
	Name              string          `json:"name"`
	Kind              deps.Kind       `json:"kind"`
	FromRange         string          `json:"fromRange"`
	ToRange           string          `json:"toRange"`
	ToVersionResolved string          `json:"toVersionResolved"`
	DiffType          semver.DiffType `json:"diffType"`
	Autofix           bool            `json:"autofix"`
}

// PackageError is a per-package failure carried in a [Report].
type PackageError struct {
	Name    string      `json:"name"`
	Code    errors.Code `json:"code,omitempty"`
	Message string      `json:"message"`
	err     error
}

// Unwrap returns the underlying error.
func (e PackageError) Unwrap() error { return e.err }

// Report is the result of a check.
type Report struct {
	Policy  semver.Policy   `json:"policy"`
	Updates []PackageUpdate `json:"updates"`
	// Skipped lists dependencies whose range does not come from a registry
	// (workspace:, file:, git URLs, dist-tags, ...).
	Skipped []string `json:"skipped,omitempty"`
	// Stale lists packages answered from an expired cache entry.
	Stale  []string       `json:"stale,omitempty"`
	Errors []PackageError `json:"errors,omitempty"`
}

// OfflineMisses returns the packages that had no cache entry in offline mode.
func (r *Report) OfflineMisses() []string {
	var out []string
	for _, e := range r.Errors {
		if e.Code == errors.ErrCodeOfflineMiss {
			out = append(out, e.Name)
		}
	}
	return out
}

// Options configures a [Checker].
type Options struct {
	Policy      semver.Policy
	Concurrency int
	Timeout     time.Duration
	TTL         time.Duration
	Offline     bool
	Logger      *log.Logger
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Policy == "" {
		opts.Policy = semver.PolicyMinor
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return opts
}

// Checker computes update reports.
type Checker struct {
	versions *versions.Resolver
	opts     Options
}

// NewChecker creates a Checker. registry may be nil when opts.Offline is set.
func NewChecker(registry versions.Registry, vc *cache.VersionCache, opts Options) *Checker {
	opts = opts.WithDefaults()
	return &Checker{
		versions: versions.NewResolver(registry, vc, versions.Options{
			Concurrency: opts.Concurrency,
			Timeout:     opts.Timeout,
			TTL:         opts.TTL,
			Offline:     opts.Offline,
			Logger:      opts.Logger,
		}),
		opts: opts,
	}
}

// Check returns the updates allowed by the policy, in input order. Registry
// and offline failures are reported per package in Report.Errors; the error
// return is reserved for failures that stop the whole check.
func (c *Checker) Check(ctx context.Context, dependencies []deps.Dependency) (*Report, error) {
	start := time.Now()
	policy, err := semver.ParsePolicy(string(c.opts.Policy))
	if err != nil {
		return nil, err
	}

	report := &Report{Policy: policy, Updates: []PackageUpdate{}}
	seen := map[string]bool{}
	var names []string
	for _, d := range dependencies {
		if !semver.IsRegistryRange(d.Range) {
			report.Skipped = append(report.Skipped, d.Name)
			continue
		}
		if !seen[d.Name] {
			seen[d.Name] = true
			names = append(names, d.Name)
		}
	}

	res, err := c.versions.Lookup(ctx, names, string(policy))
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		if err, ok := res.Errors[name]; ok {
			report.Errors = append(report.Errors, PackageError{
				Name:    name,
				Code:    errors.GetCode(err),
				Message: errors.UserMessage(err),
				err:     err,
			})
		}
		if res.Answers[name].Source == versions.SourceStale {
			report.Stale = append(report.Stale, name)
		}
	}

	for _, d := range dependencies {
		answer, ok := res.Answers[d.Name]
		if !ok || !semver.IsRegistryRange(d.Range) || answer.LatestVersion == "" {
			continue
		}
		if u, ok := Decide(d, answer.LatestVersion, policy); ok {
			report.Updates = append(report.Updates, u)
		}
	}

	c.opts.Logger.Debug("check complete", "policy", policy, "updates", len(report.Updates), "errors", len(report.Errors))
	observability.Engine().OnCheckComplete(ctx, string(policy), len(report.Updates), len(report.Errors), time.Since(start))
	return report, nil
}

// Decide applies policy to one dependency given the registry's latest
// version. ok is false when the policy allows no change.
func Decide(d deps.Dependency, latest string, policy semver.Policy) (PackageUpdate, bool) {
	target, ok := semver.PickTarget(d.Range, latest, policy)
	if !ok {
		return PackageUpdate{}, false
	}
	to := semver.ApplyRangeStyle(d.Range, target)
	if to == d.Range {
		return PackageUpdate{}, false
	}
	diff := semver.ClassifyDiff(d.Range, target)
	return PackageUpdate{
		Name:              d.Name,
		Kind:              d.Kind,
		FromRange:         d.Range,
		ToRange:           to,
		ToVersionResolved: target,
		DiffType:          diff,
		Autofix:           diff.NonBreaking(),
	}, true
}
