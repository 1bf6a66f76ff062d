// Package receipts implements the draft batch tool: read a manifest of
// requests, locate the matching PDF receipt under a folder tree, and write
// an RFC 822 mail draft with the receipt attached.
package receipts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Request is one manifest row: who gets the draft and which receipt file to
// attach.
type Request struct {
	To      string // recipient address
	Subject string // draft subject
	Company string // addressee name used in the body template
	Pattern string // substring matched against PDF filenames under the root
}

// LoadManifest parses a CSV manifest with columns to,subject,company,pattern.
// A header row is detected by its first cell and skipped. Blank lines are
// ignored; short rows are an error naming the offending line.
func LoadManifest(path string) ([]Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("receipts: open manifest: %w", err)
	}
	defer f.Close()
	return parseManifest(f)
}

func parseManifest(r io.Reader) ([]Request, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var reqs []Request
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("receipts: manifest line %d: %w", line, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "to") {
			continue
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("receipts: manifest line %d: want 4 columns, got %d", line, len(rec))
		}
		req := Request{
			To:      strings.TrimSpace(rec[0]),
			Subject: strings.TrimSpace(rec[1]),
			Company: strings.TrimSpace(rec[2]),
			Pattern: strings.TrimSpace(rec[3]),
		}
		if req.To == "" || req.Pattern == "" {
			return nil, fmt.Errorf("receipts: manifest line %d: to and pattern are required", line)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
