package receipts

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Scanner locates receipt PDFs under a folder tree. Validate defaults to a
// pdfcpu structural check; files that fail it are skipped with a warning so
// one damaged upload cannot satisfy a request with garbage.
type Scanner struct {
	Root     string
	Validate func(path string) error
	Logger   *slog.Logger
}

// NewScanner creates a Scanner rooted at root with pdfcpu validation.
func NewScanner(root string, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	conf := model.NewDefaultConfiguration()
	return &Scanner{
		Root:     root,
		Validate: func(path string) error { return api.ValidateFile(path, conf) },
		Logger:   logger,
	}
}

// Find walks the tree and returns the first .pdf whose filename contains
// pattern and passes validation. Walk order is lexical per directory, so the
// result is deterministic for a given tree.
func (s *Scanner) Find(pattern string) (string, error) {
	var found string
	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || found != "" {
			return nil
		}
		name := d.Name()
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			return nil
		}
		if !strings.Contains(name, pattern) {
			return nil
		}
		if s.Validate != nil {
			if verr := s.Validate(path); verr != nil {
				s.Logger.Warn("receipts: skipping invalid pdf", "path", path, "error", verr)
				return nil
			}
		}
		found = path
		return fs.SkipAll
	})
	if err != nil {
		return "", fmt.Errorf("receipts: walk %s: %w", s.Root, err)
	}
	if found == "" {
		return "", fmt.Errorf("receipts: no pdf matching %q under %s", pattern, s.Root)
	}
	return found, nil
}
