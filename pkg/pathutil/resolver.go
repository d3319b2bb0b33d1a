// Package pathutil provides centralized path management for ledger files and the run database.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathResolver manages paths for the main ledger, monthly import files and the database.
type PathResolver struct {
	ledgerFile   string
	importRoot   string
	databasePath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// LedgerFile is the main Beancount file (e.g., ~/accounting/main.beancount)
	LedgerFile string
	// ImportRoot is the directory monthly import files are written under
	ImportRoot string
	// DatabasePath is the path to the SQLite database file for run history
	DatabasePath string
}

// New creates a new PathResolver with the given configuration.
// If ImportRoot is empty, it defaults to {dir of LedgerFile}/mercury
// If DatabasePath is empty, it defaults to {ImportRoot}/.sync/sync.db
func New(config Config) *PathResolver {
	importRoot := config.ImportRoot
	if importRoot == "" {
		importRoot = filepath.Join(filepath.Dir(config.LedgerFile), "mercury")
	}

	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(importRoot, ".sync", "sync.db")
	}

	return &PathResolver{
		ledgerFile:   config.LedgerFile,
		importRoot:   importRoot,
		databasePath: dbPath,
	}
}

// GetLedgerFile returns the main ledger file.
func (p *PathResolver) GetLedgerFile() string {
	return p.ledgerFile
}

// GetImportRoot returns the import root directory.
func (p *PathResolver) GetImportRoot() string {
	return p.importRoot
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetYearDir returns the directory path for a year.
// Example: ~/accounting/mercury/2024
func (p *PathResolver) GetYearDir(year string) string {
	return filepath.Join(p.importRoot, year)
}

// GetMonthFilePath returns the file path for a month.
// yearMonth should be in YYYY-MM format.
// Example: ~/accounting/mercury/2024/2024-01.beancount
func (p *PathResolver) GetMonthFilePath(yearMonth string) (string, error) {
	parts := strings.Split(yearMonth, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return "", fmt.Errorf("invalid year-month format: %s. Expected YYYY-MM", yearMonth)
	}

	year := parts[0]
	yearDir := p.GetYearDir(year)
	filename := fmt.Sprintf("%s.beancount", yearMonth)

	return filepath.Join(yearDir, filename), nil
}

// RelativeToLedger returns path relative to the main ledger's directory,
// in the slash form used by include directives.
func (p *PathResolver) RelativeToLedger(path string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(p.ledgerFile), path)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return p.EnsureDir(dir)
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
