package errors

import (
	"strings"
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "react", false},
		{"valid with dash", "react-dom", false},
		{"valid with dot", "lodash.merge", false},
		{"valid scoped", "@testing-library/react", false},
		{"legacy mixed case", "JSONStream", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 215), true},
		{"uppercase scope", "@Types/react", true},
		{"uppercase scoped name", "@types/React", true},
		{"path traversal ..", "foo/../bar", true},
		{"path traversal //", "foo//bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"unscoped slash", "foo/bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidatePackageName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateRegistryURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://registry.npmjs.org/", false},
		{"http://localhost:4873", false},
		{"", true},
		{"ftp://example.com", true},
		{"registry.npmjs.org", true},
		{"https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateRegistryURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRegistryURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSplitOverride(t *testing.T) {
	tests := []struct {
		input       string
		wantName    string
		wantVersion string
		wantErr     bool
	}{
		{"react@19.0.0", "react", "19.0.0", false},
		{"@types/react@18.3.1", "@types/react", "18.3.1", false},
		{" vue@3.4.0 ", "vue", "3.4.0", false},
		{"react", "", "", true},
		{"react@", "", "", true},
		{"@types/react", "", "", true},
		{"JSONStream@1.3.5", "JSONStream", "1.3.5", false},
		{"pkg@2.0.0-RC.1", "pkg", "2.0.0-RC.1", false},
		{"@Types/react@1.0.0", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, version, err := SplitOverride(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SplitOverride(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if name != tt.wantName || version != tt.wantVersion {
				t.Errorf("SplitOverride(%q) = %q, %q; want %q, %q", tt.input, name, version, tt.wantName, tt.wantVersion)
			}
		})
	}
}
