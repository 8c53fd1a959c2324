// Package sqlscript is the root facade: load a configuration, parse a
// script, run it, and render it, without importing any of the component
// packages directly. Mirrors the teacher corpus's convention of a thin root
// package over a deeper internal component layout.
package sqlscript

import (
	"context"
	"fmt"
	"os"

	"github.com/sqlscript-io/sqlscript/config"
	"github.com/sqlscript-io/sqlscript/script"
	"github.com/sqlscript-io/sqlscript/statement"
	"github.com/sqlscript-io/sqlscript/warehouse"
)

// Config re-exports the configuration type so callers need only import
// this package for the common path.
type Config = config.Config

// Script re-exports the script coordinator type.
type Script = script.Script

// RunOptions re-exports statement.RunOptions.
type RunOptions = statement.RunOptions

// LoadConfig reads a YAML configuration file, falling back to defaults for
// any field it leaves unset.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Open reads path from disk and parses it into a Script under cfg.
func Open(cfg *Config, path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sqlscript: read %s: %w", path, err)
	}

	return script.New(cfg, path, string(data))
}

// Connect opens the named connection profile from cfg.Connections.
func Connect(cfg *Config, name string) (*warehouse.SQLConn, error) {
	conn, ok := cfg.Connections[name]
	if !ok {
		return nil, fmt.Errorf("sqlscript: unknown connection profile %q", name)
	}

	return warehouse.Open(conn)
}

// Run executes every included statement in s against conn.
func Run(ctx context.Context, s *Script, conn warehouse.Conn) error {
	return s.Run(ctx, nil, RunOptions{Conn: conn, Results: true, Lower: true})
}

// Render writes every statement and marker of s, whatever the active filter,
// as a paired .sql/.md document and returns the two output paths.
func Render(s *Script) (sqlPath, mdPath string, err error) {
	return s.Doc(true, true).Write()
}
