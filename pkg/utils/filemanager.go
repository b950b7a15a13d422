// =============================================================================
// Ledger Reconciler - File Manager Utility
// =============================================================================
//
// This module provides the file utilities a run needs:
//   - Source discovery ({input_dir}/{sheet}.xlsx, then .csv)
//   - Output file naming with placeholders
//   - Directory management for the output workbook
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceExtensions are the source file extensions tried, in order, when a
// sheet has no explicit path.
var SourceExtensions = []string{".xlsx", ".csv"}

// OutputExtension is appended to output names that lack it.
const OutputExtension = ".xlsx"

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverSource looks for the source file of a sheet in dir.
//
// PARAMETERS:
//   - dir: The directory to search. Empty means the working directory.
//   - sheet: The schema name of the sheet.
//
// RETURNS:
//   - The first existing {dir}/{sheet}{ext} for ext in SourceExtensions.
//   - false if none exists.
func DiscoverSource(dir, sheet string) (string, bool) {
	if dir == "" {
		dir = "."
	}
	for _, ext := range SourceExtensions {
		path := filepath.Join(dir, sheet+ext)
		if FileExists(path) {
			return path, true
		}
	}
	return "", false
}

// SourceFormat returns "xlsx" or "csv" for a source path, or "" when the
// extension is not supported.
func SourceFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return "xlsx"
	case ".csv", ".txt":
		return "csv"
	default:
		return ""
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// FILE NAMING UTILITIES
// =============================================================================

// GenerateOutputFileName expands placeholders in an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - The run ID, or a random UUID if params has none
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYYMMDD)
//     {time}      - Current time (HHMMSS)
//   - params: Extra placeholder values, keyed without braces.
//
// RETURNS:
//   - The generated file name, ending in OutputExtension.
//
// EXAMPLE:
//
//	format: "recon_{date}_{uuid}"
//	output: "recon_20240115_a1b2c3d4-e5f6-7890-abcd-ef1234567890.xlsx"
func GenerateOutputFileName(format string, params map[string]string) string {
	return generateAt(format, params, time.Now())
}

func generateAt(format string, params map[string]string, now time.Time) string {
	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), OutputExtension) {
		result += OutputExtension
	}
	return result
}

// =============================================================================
// FILE HELPERS
// =============================================================================

// FileExists reports whether path exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
