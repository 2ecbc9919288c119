package npm

import (
	"bufio"
	"encoding/base64"
	stderrors "errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/matzehuels/peerguard/pkg/errors"
)

// DefaultRegistry is used when no .npmrc names a registry.
const DefaultRegistry = "https://registry.npmjs.org/"

// Credential is the auth material configured for one registry prefix.
type Credential struct {
	Token string // _authToken, sent as Bearer
	Basic string // _auth (base64 user:pass), sent as Basic
}

// Header returns the Authorization header value, or "" if c is empty.
func (c Credential) Header() string {
	switch {
	case c.Token != "":
		return "Bearer " + c.Token
	case c.Basic != "":
		return "Basic " + c.Basic
	}
	return ""
}

// Config is the merged registry configuration from .npmrc files.
type Config struct {
	// Registry is the default registry URL, always ending in "/".
	Registry string
	// Scopes maps "@scope" to a registry URL.
	Scopes map[string]string
	// Auth maps a "//host/path/" prefix to its credential.
	Auth map[string]Credential
}

// DefaultConfig returns a config pointing at the public npm registry.
func DefaultConfig() *Config {
	return &Config{
		Registry: DefaultRegistry,
		Scopes:   map[string]string{},
		Auth:     map[string]Credential{},
	}
}

// LoadConfig merges homeDir/.npmrc and projectDir/.npmrc; keys in the
// project file win. Missing files are skipped and either directory may be
// empty. ${VAR} references are expanded from the environment.
func LoadConfig(homeDir, projectDir string) (*Config, error) {
	merged := map[string]string{}
	for _, dir := range []string{homeDir, projectDir} {
		if dir == "" {
			continue
		}
		path := filepath.Join(dir, ".npmrc")
		f, err := os.Open(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
		}
		kv, err := parseNpmrc(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
		}
		for k, v := range kv {
			merged[k] = v
		}
	}
	return configFromKeys(merged), nil
}

// ParseConfig builds a Config from a single .npmrc document.
func ParseConfig(r io.Reader) (*Config, error) {
	kv, err := parseNpmrc(r)
	if err != nil {
		return nil, err
	}
	return configFromKeys(kv), nil
}

func parseNpmrc(r io.Reader) (map[string]string, error) {
	kv := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = unquote(strings.TrimSpace(value))
		kv[expandEnv(key)] = expandEnv(value)
	}
	return kv, sc.Err()
}

func configFromKeys(kv map[string]string) *Config {
	cfg := DefaultConfig()
	var globalToken, globalAuth string
	users := map[string]string{}
	passwords := map[string]string{}

	for key, value := range kv {
		switch {
		case key == "registry":
			cfg.Registry = normalizeRegistry(value)
		case key == "_authToken":
			globalToken = value
		case key == "_auth":
			globalAuth = value
		case strings.HasPrefix(key, "@") && strings.HasSuffix(key, ":registry"):
			cfg.Scopes[strings.TrimSuffix(key, ":registry")] = normalizeRegistry(value)
		case strings.HasPrefix(key, "//"):
			prefix, field, ok := cutLast(key, ":")
			if !ok {
				continue
			}
			prefix = withSlash(prefix)
			cred := cfg.Auth[prefix]
			switch field {
			case "_authToken":
				cred.Token = value
			case "_auth":
				cred.Basic = value
			case "username":
				users[prefix] = value
			case "_password":
				passwords[prefix] = value
			default:
				continue
			}
			if cred != (Credential{}) {
				cfg.Auth[prefix] = cred
			}
		}
	}

	for prefix, user := range users {
		pass, err := base64.StdEncoding.DecodeString(passwords[prefix])
		if err != nil || len(pass) == 0 {
			continue
		}
		cred := cfg.Auth[prefix]
		if cred.Basic == "" {
			cred.Basic = base64.StdEncoding.EncodeToString([]byte(user + ":" + string(pass)))
			cfg.Auth[prefix] = cred
		}
	}

	if globalToken != "" || globalAuth != "" {
		prefix := NerfDart(cfg.Registry)
		if _, ok := cfg.Auth[prefix]; !ok {
			cfg.Auth[prefix] = Credential{Token: globalToken, Basic: globalAuth}
		}
	}
	return cfg
}

// RegistryFor returns the registry that serves name: the scope's registry
// for "@scope/pkg" if configured, the default registry otherwise.
func (c *Config) RegistryFor(name string) string {
	if strings.HasPrefix(name, "@") {
		if scope, _, ok := strings.Cut(name, "/"); ok {
			if reg, ok := c.Scopes[scope]; ok {
				return reg
			}
		}
	}
	return c.Registry
}

// AuthFor returns the Authorization header for rawURL using the credential
// with the longest matching "//host/path/" prefix, or "" if none matches.
func (c *Config) AuthFor(rawURL string) string {
	target := NerfDart(rawURL)
	if target == "" {
		return ""
	}
	var best string
	for prefix := range c.Auth {
		if strings.HasPrefix(target, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return ""
	}
	return c.Auth[best].Header()
}

// NerfDart strips the scheme, query and credentials from rawURL, leaving the
// "//host/path" form .npmrc uses to key credentials. Directory URLs keep a
// trailing slash.
func NerfDart(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return "//" + u.Host + path
}

var envRef = regexp.MustCompile(`\$\{([^}?]+)(\?)?\}`)

func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(m string) string {
		name := envRef.FindStringSubmatch(m)[1]
		return os.Getenv(name)
	})
}

func normalizeRegistry(raw string) string {
	return withSlash(strings.TrimSpace(raw))
}

func withSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

func cutLast(s, sep string) (before, after string, ok bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
