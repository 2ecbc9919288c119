package semver

import "testing"

func TestSatisfies(t *testing.T) {
	tests := []struct {
		version, rng string
		want         bool
		wantErr      bool
	}{
		{"18.2.0", "^18.0.0", true, false},
		{"17.0.2", "^18.0.0", false, false},
		{"18.1.0", "^18.3.0", false, false},
		{"18.3.1", "^16.8.0 || ^17.0.0 || ^18.0.0", true, false},
		{"16.14.0", ">=16.8.0", true, false},
		{"4.1.0", "4.x", true, false},
		{"1.0.0", "*", true, false},
		{"1.0.0", "", true, false},
		{"1.5.0", "1.0.0 - 2.0.0", true, false},
		{"not-a-version", "^1.0.0", false, true},
		{"1.0.0", "workspace:*", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.version+" in "+tt.rng, func(t *testing.T) {
			got, err := Satisfies(tt.version, tt.rng)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Satisfies(%q, %q) error = %v, wantErr %v", tt.version, tt.rng, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Satisfies(%q, %q) = %v, want %v", tt.version, tt.rng, got, tt.want)
			}
		})
	}
}

func TestMaxSatisfying(t *testing.T) {
	versions := []string{"17.0.2", "18.0.0", "18.2.0", "18.3.1", "19.0.0", "19.1.0-rc.0", "garbage"}

	tests := []struct {
		rng    string
		want   string
		wantOK bool
	}{
		{"^18.2.0", "18.3.1", true},
		{"~18.2.0", "18.2.0", true},
		{">=19.0.0", "19.0.0", true},
		{"^20.0.0", "", false},
		{"workspace:*", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			got, ok := MaxSatisfying(tt.rng, versions)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("MaxSatisfying(%q) = %q, %v; want %q, %v", tt.rng, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBaseVersion(t *testing.T) {
	tests := []struct {
		rng    string
		want   Parsed
		wantOK bool
	}{
		{"^18.0.0", Parsed{18, 0, 0}, true},
		{"^16.8.0 || ^17.0.0", Parsed{16, 8, 0}, true},
		{">= 16.8.0 < 19", Parsed{16, 8, 0}, true},
		{"1.2.3 - 2.0.0", Parsed{1, 2, 3}, true},
		{"~3.4.5", Parsed{3, 4, 5}, true},
		{">=16", Parsed{}, false},
		{"*", Parsed{}, false},
		{"", Parsed{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.rng, func(t *testing.T) {
			got, ok := BaseVersion(tt.rng)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("BaseVersion(%q) = %v, %v; want %v, %v", tt.rng, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsRegistryRange(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"^18.2.0", true},
		{"~1.0.0", true},
		{">=1.0.0 <2.0.0", true},
		{"1.x", true},
		{"*", true},
		{"workspace:*", false},
		{"file:../lib", false},
		{"link:../lib", false},
		{"git+https://github.com/user/repo.git", false},
		{"github:user/repo", false},
		{"user/repo", false},
		{"https://example.com/pkg.tgz", false},
		{"npm:react@^18.0.0", false},
		{"next", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsRegistryRange(tt.input); got != tt.want {
				t.Errorf("IsRegistryRange(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	got := []string{"1.10.0", "bogus", "1.2.0", "1.2.0-beta.1", "0.9.9", "alpha"}
	Sort(got)
	want := []string{"0.9.9", "1.2.0-beta.1", "1.2.0", "1.10.0", "alpha", "bogus"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sort() = %v, want %v", got, want)
		}
	}
}
