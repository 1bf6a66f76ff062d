// Package notify decides which transitions deserve an outbound message,
// renders the message bodies, and delivers them to Discord webhooks.
//
// Composition is pure: every function here maps (previous, current) record
// pairs to strings or booleans with no I/O. Delivery lives in the Notifier.
package notify

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/relais/notion"
)

// NoPrevious is the sentinel rendered on the left side of a transition when
// the page had no prior value for the field.
const NoPrevious = "（未設定）"

// StatusWorthy reports whether the status/assignee channel should fire.
// A new page (prev == nil) is worthy when at least one of the two fields was
// actually extracted; an existing page is worthy when either field differs.
func StatusWorthy(prev *notion.PageRecord, cur notion.PageRecord) bool {
	if prev == nil {
		return notion.Extracted(cur.Status) || notion.Extracted(cur.Assignee)
	}
	return prev.Status != cur.Status || prev.Assignee != cur.Assignee
}

// LiaisonWorthy reports whether the liaison channel should fire, using the
// same new-page/changed-page rules over the liaison field alone.
func LiaisonWorthy(prev *notion.PageRecord, cur notion.PageRecord) bool {
	if prev == nil {
		return notion.Extracted(cur.LiaisonStatus)
	}
	return prev.LiaisonStatus != cur.LiaisonStatus
}

// ComposeStatus renders the status/assignee message. Each field renders a
// from→to transition when it changed (NoPrevious stands in for an absent
// prior value) and a plain current-value line when it did not.
func ComposeStatus(prev *notion.PageRecord, cur notion.PageRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "【ステータス更新】%s\n", cur.CompanyName)
	b.WriteString(fieldLine("ステータス", prevField(prev, func(r *notion.PageRecord) string { return r.Status }), cur.Status))
	b.WriteString(fieldLine("担当者", prevField(prev, func(r *notion.PageRecord) string { return r.Assignee }), cur.Assignee))
	fmt.Fprintf(&b, "最終更新: %s\n", notion.FormatJST(cur.LastEditedAt))
	b.WriteString(cur.URL)
	return b.String()
}

// ComposeLiaison renders the liaison-status message: company, assignee, and
// the liaison transition.
func ComposeLiaison(prev *notion.PageRecord, cur notion.PageRecord) string {
	from := NoPrevious
	if prev != nil && notion.Extracted(prev.LiaisonStatus) {
		from = prev.LiaisonStatus
	}
	var b strings.Builder
	fmt.Fprintf(&b, "【連携ステータス更新】%s\n", cur.CompanyName)
	fmt.Fprintf(&b, "担当者: %s\n", cur.Assignee)
	fmt.Fprintf(&b, "連携ステータス: %s → %s\n", from, cur.LiaisonStatus)
	fmt.Fprintf(&b, "最終更新: %s\n", notion.FormatJST(cur.LastEditedAt))
	b.WriteString(cur.URL)
	return b.String()
}

// prevField lifts a field accessor over a possibly-nil previous record.
func prevField(prev *notion.PageRecord, get func(*notion.PageRecord) string) *string {
	if prev == nil {
		return nil
	}
	v := get(prev)
	return &v
}

// fieldLine renders one labeled field: a transition when the value changed
// (or the page is new), a plain value otherwise.
func fieldLine(label string, prev *string, cur string) string {
	switch {
	case prev == nil:
		return fmt.Sprintf("%s: %s → %s\n", label, NoPrevious, cur)
	case *prev != cur:
		return fmt.Sprintf("%s: %s → %s\n", label, *prev, cur)
	default:
		return fmt.Sprintf("%s: %s\n", label, cur)
	}
}
