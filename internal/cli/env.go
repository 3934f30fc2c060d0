package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment variables providing flag defaults.
const (
	EnvLogLevel        = "GRIDFORGE_LOG_LEVEL"
	EnvLogFormat       = "GRIDFORGE_LOG_FORMAT"
	EnvWorkers         = "GRIDFORGE_WORKERS"
	EnvRegistry        = "GRIDFORGE_REGISTRY"
	EnvHealthcheckPort = "GRIDFORGE_HEALTHCHECK_PORT"
	EnvExclude         = "GRIDFORGE_EXCLUDE"
	EnvHashCacheSize   = "GRIDFORGE_HASH_CACHE_SIZE"
)

type env func(string) (string, bool)

func (e env) str(key, def string) string {
	if v, ok := e(key); ok && v != "" {
		return v
	}
	return def
}

func (e env) int(key string, def int) int {
	if v, ok := e(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func (e env) list(key string) []string {
	v, ok := e(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// defaultRegistryPath is where schema commands keep the registry when
// neither --registry nor GRIDFORGE_REGISTRY is set.
func defaultRegistryPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "gridforge", "registry.db"), nil
}
