package receipts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// bodyTemplate is the fixed draft body. %s is the addressee company name.
const bodyTemplate = `%s
御中

いつもお世話になっております。
領収書を添付いたしますのでご確認ください。

よろしくお願いいたします。
`

// ComposeDraft renders an RFC 822 draft message: UTF-8 text body plus the
// receipt PDF as a base64 attachment. The result is suitable for saving as
// an .eml file and importing into any mail client's drafts.
func ComposeDraft(req Request, pdfPath string) ([]byte, error) {
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("receipts: read attachment: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "To: %s\r\n", req.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", req.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "X-Unsent: 1\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())

	textHdr := textproto.MIMEHeader{}
	textHdr.Set("Content-Type", "text/plain; charset=UTF-8")
	textHdr.Set("Content-Transfer-Encoding", "8bit")
	tw, err := mw.CreatePart(textHdr)
	if err != nil {
		return nil, fmt.Errorf("receipts: text part: %w", err)
	}
	fmt.Fprintf(tw, bodyTemplate, req.Company)

	filename := filepath.Base(pdfPath)
	attHdr := textproto.MIMEHeader{}
	attHdr.Set("Content-Type", "application/pdf; name="+quoteFilename(filename))
	attHdr.Set("Content-Transfer-Encoding", "base64")
	attHdr.Set("Content-Disposition", "attachment; filename="+quoteFilename(filename))
	aw, err := mw.CreatePart(attHdr)
	if err != nil {
		return nil, fmt.Errorf("receipts: attachment part: %w", err)
	}
	if err := writeBase64(aw, pdf); err != nil {
		return nil, fmt.Errorf("receipts: encode attachment: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("receipts: finalize draft: %w", err)
	}
	return buf.Bytes(), nil
}

// quoteFilename RFC2047-encodes non-ASCII filenames and quotes the result.
func quoteFilename(name string) string {
	return fmt.Sprintf("%q", mime.QEncoding.Encode("UTF-8", name))
}

// writeBase64 writes data as base64 wrapped at 76 columns per RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 0 {
		n := 76
		if n > len(encoded) {
			n = len(encoded)
		}
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:n]); err != nil {
			return err
		}
		encoded = encoded[n:]
	}
	return nil
}

// DraftFileName derives the output .eml name from a request: the pattern
// plus a sanitized recipient.
func DraftFileName(req Request) string {
	to := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, req.To)
	return fmt.Sprintf("%s_%s.eml", req.Pattern, to)
}
