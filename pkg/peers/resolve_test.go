package peers

import (
	"encoding/json"
	"strings"
	"testing"
)

func graphOf(roots []string, nodes ...Node) *Graph {
	g := NewGraph(roots)
	for _, n := range nodes {
		g.AddNode(n)
	}
	return g
}

func TestResolveAbsentPeer(t *testing.T) {
	g := graphOf([]string{"react-dom"},
		Node{Name: "react-dom", ResolvedVersion: "18.3.1", PeerRequirements: map[string]string{"react": "^18.3.1"}},
	)

	got := Resolve(g)
	if len(got) != 1 {
		t.Fatalf("got %d conflicts, want 1: %+v", len(got), got)
	}
	c := got[0]
	if c.Severity != SeverityError || c.ResolvedVersion != NotInstalled || c.IsInstalled {
		t.Errorf("conflict = %+v", c)
	}
	if c.Requester != "react-dom" || c.Peer != "react" || c.RequiredRange != "^18.3.1" {
		t.Errorf("conflict = %+v", c)
	}
}

func TestResolveSeverity(t *testing.T) {
	tests := []struct {
		name     string
		required string
		resolved string
		want     Severity
		conflict bool
	}{
		{"major mismatch", "^18.0.0", "17.0.2", SeverityError, true},
		{"same major unsatisfied", "^18.3.0", "18.1.0", SeverityWarning, true},
		{"satisfied", "^18.0.0", "18.3.1", "", false},
		{"alternatives satisfied", "^17.0.0 || ^18.0.0", "18.3.1", "", false},
		{"alternatives mismatch", "^17.0.0 || ^18.0.0", "16.14.0", SeverityError, true},
		{"unparsable resolved", "^18.0.0", "next", SeverityError, true},
		{"unparsable range", "latest", "18.3.1", SeverityError, true},
		{"tilde same major", "~18.3.0", "18.2.0", SeverityWarning, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graphOf([]string{"lib", "react"},
				Node{Name: "lib", ResolvedVersion: "1.0.0", PeerRequirements: map[string]string{"react": tt.required}},
				Node{Name: "react", ResolvedVersion: tt.resolved},
			)
			got := Resolve(g)
			if !tt.conflict {
				if len(got) != 0 {
					t.Errorf("unexpected conflicts: %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("got %d conflicts, want 1", len(got))
			}
			if got[0].Severity != tt.want {
				t.Errorf("Severity = %s, want %s", got[0].Severity, tt.want)
			}
			if !got[0].IsInstalled || got[0].ResolvedVersion != tt.resolved {
				t.Errorf("conflict = %+v", got[0])
			}
		})
	}
}

func TestResolveTransitive(t *testing.T) {
	// Only "app-kit" is a root; the conflict sits two peer hops away.
	g := graphOf([]string{"app-kit"},
		Node{Name: "app-kit", ResolvedVersion: "2.0.0", PeerRequirements: map[string]string{"ui-lib": "^3.0.0"}},
		Node{Name: "ui-lib", ResolvedVersion: "3.1.0", PeerRequirements: map[string]string{"react": "^18.0.0"}},
		Node{Name: "react", ResolvedVersion: "17.0.2"},
	)

	got := Resolve(g)
	if len(got) != 1 || got[0].Requester != "ui-lib" || got[0].Peer != "react" {
		t.Errorf("conflicts = %+v", got)
	}
}

func TestResolveVisitsEachNodeOnce(t *testing.T) {
	// a and b require each other; the cycle must terminate.
	g := graphOf([]string{"a", "b"},
		Node{Name: "a", ResolvedVersion: "1.0.0", PeerRequirements: map[string]string{"b": "^2.0.0"}},
		Node{Name: "b", ResolvedVersion: "1.0.0", PeerRequirements: map[string]string{"a": "^1.0.0"}},
	)
	got := Resolve(g)
	if len(got) != 1 || got[0].Requester != "a" {
		t.Errorf("conflicts = %+v", got)
	}
}

func TestResolveOrdering(t *testing.T) {
	g := graphOf([]string{"zeta", "alpha", "mid", "react", "vue"},
		Node{Name: "zeta", ResolvedVersion: "1.0.0", PeerRequirements: map[string]string{"react": "^18.3.0"}},
		Node{Name: "alpha", ResolvedVersion: "1.0.0", PeerRequirements: map[string]string{"react": "^18.3.0", "vue": "^3.0.0"}},
		Node{Name: "mid", ResolvedVersion: "1.0.0", PeerRequirements: map[string]string{"react": "^17.0.0", "svelte": "^4.0.0"}},
		Node{Name: "react", ResolvedVersion: "18.1.0"},
		Node{Name: "vue", ResolvedVersion: "2.7.0"},
	)

	got := Resolve(g)
	var keys []string
	for _, c := range got {
		keys = append(keys, string(c.Severity)+":"+c.Requester+">"+c.Peer)
	}
	want := []string{
		"error:alpha>vue",
		"error:mid>react",
		"error:mid>svelte",
		"warning:alpha>react",
		"warning:zeta>react",
	}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v\nwant    %v", keys, want)
	}

	first, _ := json.Marshal(got)
	second, _ := json.Marshal(Resolve(g))
	if string(first) != string(second) {
		t.Error("two runs over the same graph differ")
	}
}

func TestConflictSuggestIsDerived(t *testing.T) {
	g := graphOf([]string{"lib"},
		Node{Name: "lib", ResolvedVersion: "1.0.0", PeerRequirements: map[string]string{"react": "^18.0.0", "vue": "^3.0.0"}},
		Node{Name: "react", ResolvedVersion: "17.0.2"},
	)
	for _, c := range Resolve(g) {
		if c.Suggestion == "" || c.Suggestion != c.Suggest() {
			t.Errorf("Suggestion %q is not regenerable", c.Suggestion)
		}
		if !strings.Contains(c.Suggestion, c.Peer) || !strings.Contains(c.Suggestion, c.RequiredRange) {
			t.Errorf("Suggestion %q lacks peer or range", c.Suggestion)
		}
	}
}

func TestCount(t *testing.T) {
	errs, warns := Count([]Conflict{{Severity: SeverityError}, {Severity: SeverityWarning}, {Severity: SeverityError}})
	if errs != 2 || warns != 1 {
		t.Errorf("Count() = %d, %d", errs, warns)
	}
}
