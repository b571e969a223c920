package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type SQLiteConfig struct {
	WAL           bool
	BusyTimeoutMs int
	ForeignKeys   bool
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Config struct {
	Driver string
	DSN    string
	SQLite SQLiteConfig
	Pool   PoolConfig
}

func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
		DSN:    "mira_brain.db",
		SQLite: SQLiteConfig{
			WAL:           true,
			BusyTimeoutMs: 5000,
			ForeignKeys:   true,
		},
		Pool: PoolConfig{
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
	}
}

// ResolveSQLiteDSN expands a file DSN to an absolute path and makes sure the
// parent directory exists. In-memory DSNs pass through untouched.
func ResolveSQLiteDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("empty sqlite dsn")
	}
	if strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory") || dsn == ":memory:" {
		return dsn, nil
	}
	abs, err := filepath.Abs(dsn)
	if err != nil {
		return "", fmt.Errorf("resolve sqlite dsn: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create db dir: %w", err)
	}
	return abs, nil
}
