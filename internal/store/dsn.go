package store

import (
	"fmt"
	"strings"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDSN picks the backend for a DATABASE_URL and returns the source string
// that backend expects.
//
//	postgres://..., postgresql://...   -> postgres, unchanged
//	sqlite://path, sqlite:path         -> sqlite, path
//	file:..., *.db, :memory:           -> sqlite, unchanged
func ParseDSN(url string) (Driver, string, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return "", "", fmt.Errorf("empty database url")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqliteSource(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "sqlite:"):
		return sqliteSource(strings.TrimPrefix(url, "sqlite:"))
	case strings.HasPrefix(url, "file:"), url == ":memory:", strings.HasSuffix(url, ".db"), strings.HasSuffix(url, ".sqlite"):
		return DriverSQLite, url, nil
	}
	return "", "", fmt.Errorf("unsupported database url %q", redact(url))
}

func sqliteSource(path string) (Driver, string, error) {
	if path == "" {
		return "", "", fmt.Errorf("sqlite url has no path")
	}
	return DriverSQLite, path, nil
}

func redact(url string) string {
	if i := strings.Index(url, "@"); i >= 0 {
		if j := strings.Index(url, "://"); j >= 0 && j < i {
			return url[:j+3] + "***" + url[i:]
		}
	}
	return url
}
