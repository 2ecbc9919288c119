package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// npmPackageNameRegex matches valid npm package names. Unscoped names may
// carry capitals; the registry still serves legacy packages like JSONStream.
var npmPackageNameRegex = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/[a-z0-9-~][a-z0-9-._~]*|[A-Za-z0-9-~][A-Za-z0-9-._~]*)$`)

// ValidatePackageName validates an npm package name before it is placed in a
// registry URL or a cache key.
//
// The validation rules are intentionally conservative:
//   - No empty names, maximum length of 214 characters (npm's limit)
//   - No control characters
//   - No path traversal sequences (.., //, backslash)
//   - Scoped names are lowercase; unscoped legacy names may mix case
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}
	if len(name) > 214 {
		return New(ErrCodeInvalidInput, "package name too long (max 214 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "package name contains invalid control characters")
		}
	}
	for _, pattern := range []string{"..", "//", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "package name contains invalid characters: %q", pattern)
		}
	}
	if strings.HasPrefix(name, "@") && strings.ToLower(name) != name {
		return New(ErrCodeInvalidInput, "scoped package names must be lowercase: %q", name)
	}
	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid npm package name: %q", name)
	}
	return nil
}

// ValidateRegistryURL validates a registry base URL read from configuration.
// It must be absolute and use http or https.
func ValidateRegistryURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "registry URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid registry URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "registry URL must use http or https scheme: %q", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "registry URL has no host: %q", rawURL)
	}
	return nil
}

// SplitOverride splits a "name@version" simulation override. Scoped names keep
// their leading "@". Only surrounding whitespace is removed; the name and
// version keep their case.
func SplitOverride(spec string) (name, version string, err error) {
	spec = strings.TrimSpace(spec)
	i := strings.LastIndex(spec, "@")
	if i <= 0 {
		return "", "", New(ErrCodeInvalidInput, "override must be name@version: %q", spec)
	}
	name, version = spec[:i], spec[i+1:]
	if version == "" {
		return "", "", New(ErrCodeInvalidInput, "override has empty version: %q", spec)
	}
	if err := ValidatePackageName(name); err != nil {
		return "", "", err
	}
	return name, version, nil
}
