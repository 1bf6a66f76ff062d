package receipts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Summary reports a WriteDrafts run. Failures carry one line per failed
// request; a partial run still writes every draft it can.
type Summary struct {
	Written  int
	Failures []string
}

// WriteDrafts processes every manifest request: find the receipt, compose
// the draft, write it under outDir. Per-request failures are collected in
// the summary instead of aborting the batch.
func WriteDrafts(ctx context.Context, reqs []Request, scanner *Scanner, outDir string, logger *slog.Logger) (*Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("receipts: create output dir: %w", err)
	}

	sum := &Summary{}
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		pdfPath, err := scanner.Find(req.Pattern)
		if err != nil {
			logger.Warn("receipts: receipt not found", "pattern", req.Pattern, "error", err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", req.Pattern, err))
			continue
		}
		draft, err := ComposeDraft(req, pdfPath)
		if err != nil {
			logger.Warn("receipts: compose failed", "pattern", req.Pattern, "error", err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", req.Pattern, err))
			continue
		}
		outPath := filepath.Join(outDir, DraftFileName(req))
		if err := os.WriteFile(outPath, draft, 0o644); err != nil {
			logger.Warn("receipts: write failed", "path", outPath, "error", err)
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", req.Pattern, err))
			continue
		}
		logger.Info("receipts: draft written", "to", req.To, "attachment", filepath.Base(pdfPath), "out", outPath)
		sum.Written++
	}
	return sum, nil
}
