package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const defaultDBName = "jornada.db"

type Config struct {
	// Path is the database file. When empty the file lives at
	// <Workspace>/.jornada/jornada.db.
	Path      string
	Workspace string
}

func dbPath(cfg Config) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	workspace := cfg.Workspace
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".jornada", defaultDBName)
}

// Open opens the SQLite database with foreign keys on, creating the parent
// directory if missing.
func Open(cfg Config) (*sql.DB, error) {
	path := dbPath(cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Path returns the db path for cfg.
func Path(cfg Config) string {
	return dbPath(cfg)
}
