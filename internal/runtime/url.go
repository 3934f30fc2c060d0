package runtime

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// NormalizeURL turns a file path or a file:// url into an absolute,
// cleaned file:// url.
func NormalizeURL(raw string) (string, error) {
	p, err := Path(raw)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(), nil
}

// Path returns the absolute file path a schema url or path refers to.
func Path(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty schema location")
	}
	p := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("parsing schema url %q: %w", raw, err)
		}
		if u.Scheme != "file" {
			return "", fmt.Errorf("unsupported schema url scheme %q", u.Scheme)
		}
		p = filepath.FromSlash(u.Path)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving schema path %q: %w", raw, err)
	}
	return abs, nil
}
