// Package config holds the immutable, fully parsed settings bundle passed to
// every other component: tag delimiters, wildcard characters, the reserved
// attribute table, anchor/keyword-exception maps, QA defaults, and attribute
// render order.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// ErrConfigValidation is returned when configuration validation fails.
var ErrConfigValidation = errors.New("configuration validation failed")

// Patterns groups the delimiter characters used to recognize and decompose
// tag blocks.
type Patterns struct {
	OpenTag   string `yaml:"open_tag"`
	CloseTag  string `yaml:"close_tag"`
	SepKw     string `yaml:"sep_keyword"`
	SepDesc   string `yaml:"sep_desc"`
	RecordPfx string `yaml:"record_prefix"`

	Wildcards Wildcards `yaml:"wildcards"`
}

// Wildcards groups the wildcard character and per-flag characters recognized
// on attribute keys.
type Wildcards struct {
	Char         string `yaml:"char"`
	Delim        string `yaml:"delim"`
	Paragraph    string `yaml:"paragraph"`
	Verbatim     string `yaml:"verbatim"`
	OmitAttrName string `yaml:"omit_name"`
	EscapeChar   string `yaml:"escape"`
}

// ReservedAttr describes a reserved attribute name's default render format.
type ReservedAttr struct {
	AttrName string `yaml:"attr_name"`
	Format   string `yaml:"format"` // e.g. "code-block", "table"
}

// Connection is a named connection profile, supplemented from the original
// snowmobile implementation's connection.py (see SPEC_FULL.md §3.1).
type Connection struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

// QA groups defaults for the QA statement variants.
type QA struct {
	DefaultAbsTol string   `yaml:"default_abs_tol"`
	DefaultRelTol string   `yaml:"default_rel_tol"`
	Anchors       []string `yaml:"anchors"` // e.g. ["qa-empty", "qa-diff", "qa-expect"]
}

// Markdown groups the Markup renderer's settings.
type Markdown struct {
	StatementHeadingLevel int             `yaml:"statement_heading_level"`
	MarkerHeadingLevel    int             `yaml:"marker_heading_level"`
	ExportSubdir          string          `yaml:"export_subdir"`
	Prefix                string          `yaml:"prefix"`
	Suffix                string          `yaml:"suffix"`
	Disclaimer            string          `yaml:"disclaimer"`
	IncludeResults        bool            `yaml:"include_results"`
	IncludeSQL            bool            `yaml:"include_sql"`
	Reserved              map[string]ReservedAttr `yaml:"reserved"`
}

// Config is the fully parsed, immutable settings bundle. Once returned from
// Load or Default it must not be mutated; every component that receives a
// *Config treats it as read-only.
type Config struct {
	Patterns Patterns `yaml:"patterns"`

	KeywordExceptions map[string]string `yaml:"keyword_exceptions"`
	GenericAnchors    map[string]string `yaml:"generic_anchors"`
	NamedObjects      []string          `yaml:"named_objects"`

	DefaultObject      string `yaml:"default_object"`
	DefaultDescription string `yaml:"default_description"`

	AttrOrder []string          `yaml:"attr_order"`
	AttrTypes map[string]string `yaml:"attr_types"` // attr name -> "list"|"float"|"bool"|"str"

	QA       QA                    `yaml:"qa"`
	Markdown Markdown              `yaml:"markdown"`
	Connections map[string]Connection `yaml:"connections"`
}

// ScopeAttributes is the fixed, ordered set of identity components a Scope
// can be built over. Order matters: Tag constructs one Scope per entry, in
// this order.
var ScopeAttributes = [...]string{"kw", "obj", "desc", "anchor", "nm"}

// ScopeTypes is the fixed pair of scope directions.
var ScopeTypes = [...]string{"incl", "excl"}

// Default returns the built-in configuration used when no YAML file is
// supplied, mirroring the teacher's getDefaultConfig fallback.
func Default() *Config {
	return &Config{
		Patterns: Patterns{
			OpenTag: "/*-", CloseTag: "-*/", SepKw: " ", SepDesc: "~", RecordPfx: "__",
			Wildcards: Wildcards{
				Char: "*", Delim: "_", Paragraph: "p", Verbatim: "v", OmitAttrName: "o", EscapeChar: `\`,
			},
		},
		KeywordExceptions: map[string]string{
			"create or replace": "create",
		},
		GenericAnchors: map[string]string{
			"select": "select data",
			"commit": "commit transaction",
		},
		NamedObjects: []string{"table", "view", "schema", "database", "warehouse", "procedure", "function"},

		DefaultObject:      "unknown",
		DefaultDescription: "statement",

		AttrOrder: []string{"Description", "Tags", "Results*", "SQL*"},
		AttrTypes: map[string]string{"tags": "list", "abs_tol": "float", "rel_tol": "float"},

		QA: QA{
			DefaultAbsTol: "0",
			DefaultRelTol: "0",
			Anchors:       []string{"qa-empty", "qa-diff", "qa-expect"},
		},
		Markdown: Markdown{
			StatementHeadingLevel: 2,
			MarkerHeadingLevel:    1,
			ExportSubdir:          "docs",
			Suffix:                "",
			Prefix:                "",
			Disclaimer:            "<!-- generated by sqlscript; do not edit by hand -->",
			IncludeResults:        true,
			IncludeSQL:            true,
			Reserved: map[string]ReservedAttr{
				"results": {AttrName: "Results", Format: "table"},
				"sql":     {AttrName: "SQL", Format: "code-block"},
			},
		},
		Connections: map[string]Connection{},
	}
}

// Load reads a YAML configuration file, expands ${ENV_VAR} references
// against the process environment (after loading a sibling .env file, if
// present), validates it, and layers it over Default() for any field the
// file leaves unset.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment file: %w", err)
	}

	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks internal consistency of the configuration.
func (c *Config) Validate() error {
	if c.Patterns.OpenTag == "" || c.Patterns.CloseTag == "" {
		return fmt.Errorf("%w: open_tag/close_tag must not be empty", ErrConfigValidation)
	}

	if c.Patterns.SepDesc == "" {
		return fmt.Errorf("%w: sep_desc must not be empty", ErrConfigValidation)
	}

	if c.DefaultObject == "" || c.DefaultDescription == "" {
		return fmt.Errorf("%w: default_object/default_description must not be empty", ErrConfigValidation)
	}

	for name, conn := range c.Connections {
		if conn.Driver == "" {
			return fmt.Errorf("%w: connection %q is missing a driver", ErrConfigValidation, name)
		}
	}

	return nil
}

// IsQAAnchor reports whether anchor belongs to the configured QA anchor set.
func (c *Config) IsQAAnchor(anchor string) bool {
	for _, a := range c.QA.Anchors {
		if a == anchor {
			return true
		}
	}

	return false
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}

	return nil
}

var (
	reBraced = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

func expandEnvVars(cfg *Config) {
	expand := func(s string) string {
		return reBraced.ReplaceAllStringFunc(s, func(m string) string {
			return os.Getenv(m[2 : len(m)-1])
		})
	}

	for name, conn := range cfg.Connections {
		conn.DSN = expand(conn.DSN)
		cfg.Connections[name] = conn
	}
}
