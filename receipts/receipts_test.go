package receipts

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseManifest(t *testing.T) {
	// WHAT: Header row is skipped, blank lines ignored, fields trimmed.
	in := strings.NewReader(`to,subject,company,pattern
tanaka@example.com, 領収書のご送付 ,Acme商事,202504_acme

suzuki@example.com,領収書,日本産業,202504_nihon
`)
	reqs, err := parseManifest(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("rows: got %d", len(reqs))
	}
	if reqs[0].To != "tanaka@example.com" || reqs[0].Subject != "領収書のご送付" {
		t.Errorf("row 0: %+v", reqs[0])
	}
	if reqs[1].Pattern != "202504_nihon" {
		t.Errorf("row 1: %+v", reqs[1])
	}
}

func TestParseManifest_Errors(t *testing.T) {
	// WHAT: Short rows and missing required fields fail with the line number.
	if _, err := parseManifest(strings.NewReader("a@example.com,subj,co\n")); err == nil {
		t.Error("expected error for short row")
	}
	if _, err := parseManifest(strings.NewReader(",subj,co,pat\n")); err == nil {
		t.Error("expected error for empty to")
	}
}

func testTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range []string{
		"2025/04/202504_acme_receipt.pdf",
		"2025/04/202504_nihon_receipt.pdf",
		"2025/03/202503_acme_receipt.pdf",
		"notes/readme.txt",
	} {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("%PDF-1.4 stub"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// stubValidator accepts everything; pdfcpu is exercised only against real
// receipts, not fixture stubs.
func stubValidator(string) error { return nil }

func TestScanner_Find(t *testing.T) {
	// WHAT: Find returns the file whose name contains the pattern, walking
	// the whole tree, and ignores non-PDF files.
	root := testTree(t)
	s := NewScanner(root, nil)
	s.Validate = stubValidator

	got, err := s.Find("202504_nihon")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if filepath.Base(got) != "202504_nihon_receipt.pdf" {
		t.Errorf("got %s", got)
	}

	if _, err := s.Find("readme"); err == nil {
		t.Error("non-pdf must not match")
	}
	if _, err := s.Find("202599"); err == nil {
		t.Error("expected not-found error")
	}
}

func TestScanner_SkipsInvalidPDF(t *testing.T) {
	// WHAT: A file failing validation is skipped; a later valid match wins.
	// WHY: One damaged upload must not satisfy a request with garbage.
	root := testTree(t)
	s := NewScanner(root, nil)
	bad := filepath.Join(root, "2025", "03", "202503_acme_receipt.pdf")
	s.Validate = func(path string) error {
		if path == bad {
			return fmt.Errorf("damaged")
		}
		return nil
	}
	got, err := s.Find("acme")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == bad {
		t.Errorf("invalid pdf was returned: %s", got)
	}
}

func TestComposeDraft(t *testing.T) {
	// WHAT: The draft is a well-formed multipart message: text body with the
	// company name, PDF attachment carried as base64.
	root := testTree(t)
	pdfPath := filepath.Join(root, "2025", "04", "202504_acme_receipt.pdf")
	req := Request{To: "tanaka@example.com", Subject: "領収書のご送付", Company: "Acme商事", Pattern: "202504_acme"}

	draft, err := ComposeDraft(req, pdfPath)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	msg, err := mail.ReadMessage(strings.NewReader(string(draft)))
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	if msg.Header.Get("To") != "tanaka@example.com" {
		t.Errorf("to: %q", msg.Header.Get("To"))
	}
	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil || subject != "領収書のご送付" {
		t.Errorf("subject: %q err=%v", subject, err)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/mixed" {
		t.Fatalf("content-type: %q err=%v", mediaType, err)
	}
	mr := multipart.NewReader(msg.Body, params["boundary"])

	text, err := mr.NextPart()
	if err != nil {
		t.Fatalf("text part: %v", err)
	}
	body, _ := io.ReadAll(text)
	if !strings.Contains(string(body), "Acme商事") {
		t.Errorf("body missing company:\n%s", body)
	}

	att, err := mr.NextPart()
	if err != nil {
		t.Fatalf("attachment part: %v", err)
	}
	if att.Header.Get("Content-Transfer-Encoding") != "base64" {
		t.Errorf("attachment encoding: %q", att.Header.Get("Content-Transfer-Encoding"))
	}
	if ct := att.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/pdf") {
		t.Errorf("attachment type: %q", ct)
	}
}

func TestWriteDrafts(t *testing.T) {
	// WHAT: One .eml per resolvable request; unresolvable patterns are
	// collected as failures without aborting the batch.
	root := testTree(t)
	out := t.TempDir()
	s := NewScanner(root, nil)
	s.Validate = stubValidator

	reqs := []Request{
		{To: "tanaka@example.com", Subject: "領収書", Company: "Acme商事", Pattern: "202504_acme"},
		{To: "suzuki@example.com", Subject: "領収書", Company: "日本産業", Pattern: "does_not_exist"},
	}
	sum, err := WriteDrafts(context.Background(), reqs, s, out, nil)
	if err != nil {
		t.Fatalf("write drafts: %v", err)
	}
	if sum.Written != 1 || len(sum.Failures) != 1 {
		t.Fatalf("summary: %+v", sum)
	}
	entries, err := os.ReadDir(out)
	if err != nil || len(entries) != 1 {
		t.Fatalf("output dir: %v entries=%d", err, len(entries))
	}
	if !strings.HasSuffix(entries[0].Name(), ".eml") {
		t.Errorf("output name: %s", entries[0].Name())
	}
}
