// =============================================================================
// Ledger Reconciler - Run Settings
// =============================================================================
//
// Run settings say WHERE things are (schema, source files, output) and how to
// log. They are separate from the schema, which says WHAT to reconcile.
//
// SOURCES (highest precedence first):
//   1. Command-line flags (bound by the cmd package)
//   2. RECONCILER_* environment variables
//   3. .env / .env.local files in the working directory
//   4. Defaults below
//
// =============================================================================

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "RECONCILER"

// Setting keys.
const (
	KeySchema      = "schema"
	KeyPreset      = "preset"
	KeyPrimary     = "primary"
	KeySecondary   = "secondary"
	KeyInputDir    = "input_dir"
	KeyOutput      = "output"
	KeyCSVEncoding = "csv_encoding"
	KeyDryRun      = "dry_run"
	KeyLogLevel    = "log_level"
	KeyLogFormat   = "log_format"
)

// Supported CSV source encodings.
var csvEncodings = []string{"UTF-8", "Windows-1252", "ISO-8859-1"}

// =============================================================================
// SETTINGS STRUCTURE
// =============================================================================

// Settings holds everything a reconciliation run needs besides the schema.
type Settings struct {
	// SchemaPath is the reconciliation schema file (JSON or YAML).
	// Default: "reconcil.json"
	SchemaPath string

	// Preset names a built-in schema used instead of SchemaPath.
	Preset string

	// PrimaryPath is the primary table file.
	// Default: "faeu.xlsx"
	PrimaryPath string

	// SecondaryPaths maps a secondary sheet name to its file. Sheets not
	// listed here are looked up as {InputDir}/{name}.xlsx or .csv.
	// Default: {"insurer": "sukoon.xlsx"}
	SecondaryPaths map[string]string

	// InputDir is where secondary sources are auto-discovered.
	// Default: "."
	InputDir string

	// Output is the output workbook path. Supports {uuid}, {timestamp},
	// {date} placeholders.
	// Default: "reconciliation_output_general.xlsx"
	Output string

	// CSVEncoding is the character encoding of CSV sources.
	// Default: "UTF-8"
	CSVEncoding string

	// DryRun runs every phase but does not write the output workbook.
	DryRun bool

	// LogLevel is the zerolog level name. Default: "info"
	LogLevel string

	// LogFormat is "auto", "console" or "json". Default: "auto"
	LogFormat string
}

// =============================================================================
// LOADING
// =============================================================================

// NewViper returns a viper instance with defaults and environment binding
// configured for run settings.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeySchema, "reconcil.json")
	v.SetDefault(KeyPrimary, "faeu.xlsx")
	v.SetDefault(KeySecondary, map[string]string{"insurer": "sukoon.xlsx"})
	v.SetDefault(KeyInputDir, ".")
	v.SetDefault(KeyOutput, "reconciliation_output_general.xlsx")
	v.SetDefault(KeyCSVEncoding, "UTF-8")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "auto")

	return v
}

// LoadEnvFiles loads .env files into the process environment. Missing files
// are ignored; .env.local does not override values already set by .env.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// LoadSettings builds Settings from a viper instance.
//
// RETURNS:
//   - The settings with defaults applied.
//   - An error if a value is invalid (e.g. unsupported CSV encoding).
func LoadSettings(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		SchemaPath:     v.GetString(KeySchema),
		Preset:         v.GetString(KeyPreset),
		PrimaryPath:    v.GetString(KeyPrimary),
		SecondaryPaths: sourceMap(v),
		InputDir:       v.GetString(KeyInputDir),
		Output:         v.GetString(KeyOutput),
		CSVEncoding:    v.GetString(KeyCSVEncoding),
		DryRun:         v.GetBool(KeyDryRun),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
	}

	applySettingsDefaults(s)

	if err := validateSettings(s); err != nil {
		return nil, err
	}

	return s, nil
}

// applySettingsDefaults covers values cleared explicitly (e.g. --output "").
func applySettingsDefaults(s *Settings) {
	if s.InputDir == "" {
		s.InputDir = "."
	}
	if s.Output == "" {
		s.Output = "reconciliation_output_general.xlsx"
	}
	if s.CSVEncoding == "" {
		s.CSVEncoding = "UTF-8"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "auto"
	}
	if s.SecondaryPaths == nil {
		s.SecondaryPaths = make(map[string]string)
	}
}

// validateSettings checks values that would otherwise fail deep in a run.
func validateSettings(s *Settings) error {
	if s.SchemaPath == "" && s.Preset == "" {
		return fmt.Errorf("either a schema file or a preset is required")
	}
	if s.PrimaryPath == "" {
		return fmt.Errorf("primary source file is required")
	}

	for _, enc := range csvEncodings {
		if strings.EqualFold(enc, s.CSVEncoding) {
			s.CSVEncoding = enc
			return nil
		}
	}
	return fmt.Errorf("unsupported csv encoding %q (supported: %s)",
		s.CSVEncoding, strings.Join(csvEncodings, ", "))
}

// sourceMap reads the secondary source map. It accepts a real map (flags,
// defaults) or a "name=path,name=path" string (environment variables).
func sourceMap(v *viper.Viper) map[string]string {
	if m := v.GetStringMapString(KeySecondary); len(m) > 0 {
		return m
	}
	return ParseSourceList(v.GetString(KeySecondary))
}

// ParseSourceList parses "name=path,name=path". Malformed entries are ignored.
func ParseSourceList(s string) map[string]string {
	out := make(map[string]string)
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return out
	}
	for _, pair := range strings.Split(s, ",") {
		name, path, ok := strings.Cut(pair, "=")
		name, path = strings.TrimSpace(name), strings.TrimSpace(path)
		if !ok || name == "" || path == "" {
			continue
		}
		out[name] = path
	}
	return out
}

// SecondaryNames returns the explicitly configured secondary names, sorted.
func (s *Settings) SecondaryNames() []string {
	names := make([]string, 0, len(s.SecondaryPaths))
	for name := range s.SecondaryPaths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
