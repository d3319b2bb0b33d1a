package ledger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/mercury-sync/pkg/pathutil"
)

// Repository defines the interface for ledger file operations.
type Repository interface {
	// AppendTransactions appends transactions to a monthly file and returns its path
	AppendTransactions(yearMonth string, txns []*Transaction, comment string) (string, error)

	// ReadMonthFile reads the content of a monthly file
	ReadMonthFile(yearMonth string) (string, error)

	// EnsureMonthFile ensures a monthly file exists with header
	EnsureMonthFile(yearMonth string) error

	// EnsureIncluded makes the main ledger include every monthly file
	EnsureIncluded() error
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
	}
}

// AppendTransactions appends transactions to a monthly file.
// It creates the file if it doesn't exist.
func (r *FileSystemRepository) AppendTransactions(yearMonth string, txns []*Transaction, comment string) (string, error) {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return "", fmt.Errorf("failed to get month file path: %w", err)
	}

	if err := r.EnsureMonthFile(yearMonth); err != nil {
		return "", fmt.Errorf("failed to ensure month file: %w", err)
	}

	var sb strings.Builder
	if comment != "" {
		sb.WriteString(fmt.Sprintf("; %s\n", comment))
	}
	for _, txn := range txns {
		sb.WriteString(FormatTransaction(txn))
		sb.WriteString("\n") // Blank line after transaction
	}

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(sb.String()); err != nil {
		return "", fmt.Errorf("failed to write to file: %w", err)
	}

	return filePath, nil
}

// ReadMonthFile reads the content of a monthly file.
// Returns empty string if file doesn't exist.
func (r *FileSystemRepository) ReadMonthFile(yearMonth string) (string, error) {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return "", fmt.Errorf("failed to get month file path: %w", err)
	}

	if !r.pathResolver.FileExists(filePath) {
		return "", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return string(data), nil
}

// EnsureMonthFile ensures a monthly file exists with header.
// If the file already exists, this is a no-op.
func (r *FileSystemRepository) EnsureMonthFile(yearMonth string) error {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return fmt.Errorf("failed to get month file path: %w", err)
	}

	if r.pathResolver.FileExists(filePath) {
		return nil
	}

	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	header := r.generateFileHeader(yearMonth)
	if err := os.WriteFile(filePath, []byte(header), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// EnsureIncluded appends an include directive covering all monthly files
// to the main ledger unless it is already there. Without it the next run
// would not see the imported entries and would import them again.
func (r *FileSystemRepository) EnsureIncluded() error {
	pattern, err := r.IncludePattern()
	if err != nil {
		return err
	}
	directive := fmt.Sprintf("include %q", pattern)

	ledgerFile := r.pathResolver.GetLedgerFile()
	data, err := os.ReadFile(ledgerFile)
	if err != nil {
		return fmt.Errorf("failed to read ledger file: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == directive {
			return nil
		}
	}

	content := directive + "\n"
	if len(data) > 0 && data[len(data)-1] != '\n' {
		content = "\n" + content
	}

	f, err := os.OpenFile(ledgerFile, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write include directive: %w", err)
	}

	return nil
}

// IncludePattern returns the include glob for monthly files, relative to
// the main ledger.
func (r *FileSystemRepository) IncludePattern() (string, error) {
	root, err := r.pathResolver.RelativeToLedger(r.pathResolver.GetImportRoot())
	if err != nil {
		return "", err
	}
	return root + "/*/*.beancount", nil
}

// generateFileHeader generates a header comment for a monthly file.
func (r *FileSystemRepository) generateFileHeader(yearMonth string) string {
	now := time.Now().Format(time.RFC3339)
	return fmt.Sprintf("; Mercury transactions for %s\n; Generated at %s\n\n", yearMonth, now)
}
