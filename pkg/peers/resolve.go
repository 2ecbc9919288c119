package peers

import (
	"context"
	"fmt"
	"slices"

	"github.com/matzehuels/peerguard/pkg/observability"
	"github.com/matzehuels/peerguard/pkg/semver"
)

// Severity grades a conflict.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// NotInstalled is the resolved version reported for a missing peer.
const NotInstalled = "(not installed)"

// Conflict is one unsatisfied peer requirement.
type Conflict struct {
	Requester       string   `json:"requester"`
	Peer            string   `json:"peer"`
	RequiredRange   string   `json:"requiredRange"`
	ResolvedVersion string   `json:"resolvedVersion"`
	Severity        Severity `json:"severity"`
	IsInstalled     bool     `json:"isInstalled"`
	Suggestion      string   `json:"suggestion"`
}

// Suggest derives the remediation text from the other fields.
func (c Conflict) Suggest() string {
	switch {
	case !c.IsInstalled:
		return fmt.Sprintf("install %s@%q; %s requires it as a peer", c.Peer, c.RequiredRange, c.Requester)
	case c.Severity == SeverityError:
		return fmt.Sprintf("%s requires %s %s but %s is resolved; move %s to a version in that range or change %s",
			c.Requester, c.Peer, c.RequiredRange, c.ResolvedVersion, c.Peer, c.Requester)
	default:
		return fmt.Sprintf("update %s from %s to satisfy %s (required by %s)",
			c.Peer, c.ResolvedVersion, c.RequiredRange, c.Requester)
	}
}

// Resolve walks g breadth-first from its roots and returns every unsatisfied
// peer requirement. Errors come before warnings; within a severity,
// conflicts are ordered by requester. The result is deterministic for a
// given graph.
func Resolve(g *Graph) []Conflict {
	var conflicts []Conflict
	visited := map[string]bool{}
	queue := g.Roots()

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if visited[name] {
			continue
		}
		visited[name] = true

		node, ok := g.Node(name)
		if !ok {
			continue
		}
		for _, peer := range node.PeerNames() {
			rng := node.PeerRequirements[peer]
			if c, bad := check(g, name, peer, rng); bad {
				conflicts = append(conflicts, c)
			}
			if !visited[peer] {
				queue = append(queue, peer)
			}
		}
	}

	slices.SortStableFunc(conflicts, func(a, b Conflict) int {
		if a.Severity != b.Severity {
			if a.Severity == SeverityError {
				return -1
			}
			return 1
		}
		switch {
		case a.Requester < b.Requester:
			return -1
		case a.Requester > b.Requester:
			return 1
		}
		return 0
	})
	return conflicts
}

func check(g *Graph, requester, peer, rng string) (Conflict, bool) {
	c := Conflict{Requester: requester, Peer: peer, RequiredRange: rng}

	node, ok := g.Node(peer)
	if !ok {
		c.ResolvedVersion = NotInstalled
		c.Severity = SeverityError
		c.Suggestion = c.Suggest()
		return c, true
	}

	c.IsInstalled = true
	c.ResolvedVersion = node.ResolvedVersion
	if ok, err := semver.Satisfies(node.ResolvedVersion, rng); err == nil && ok {
		return c, false
	}
	c.Severity = classify(node.ResolvedVersion, rng)
	c.Suggestion = c.Suggest()
	return c, true
}

// classify grades an unsatisfied requirement. Unparsable input is an error.
func classify(resolved, rng string) Severity {
	v, ok := semver.Parse(resolved)
	if !ok {
		return SeverityError
	}
	base, ok := semver.BaseVersion(rng)
	if !ok || base.Major != v.Major {
		return SeverityError
	}
	return SeverityWarning
}

// Count returns the number of error and warning conflicts.
func Count(conflicts []Conflict) (errs, warnings int) {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			errs++
		} else {
			warnings++
		}
	}
	return errs, warnings
}

// ResolveContext is Resolve plus an observability event.
func ResolveContext(ctx context.Context, g *Graph) []Conflict {
	conflicts := Resolve(g)
	errs, warnings := Count(conflicts)
	observability.Engine().OnConflicts(ctx, errs, warnings)
	return conflicts
}
