package notion

import (
	"encoding/json"
	"time"
)

// Placeholder marks a business field that could not be extracted.
const Placeholder = "不明"

// Property names tracked on the Notion database. The relay reads these four
// and ignores everything else on the page.
const (
	PropCompany = "会社名"
	PropStatus  = "ステータス"
	PropAssign  = "担当者"
	PropLiaison = "連携ステータス"
)

// jst is the display time zone for every formatted timestamp.
var jst = time.FixedZone("JST", 9*60*60)

// PageRecord is the flat per-invocation view of a page. Business fields hold
// Placeholder when the source property was absent or malformed.
type PageRecord struct {
	ID            string
	CompanyName   string
	Status        string
	Assignee      string
	LiaisonStatus string
	URL           string
	LastEditedAt  time.Time
}

// Extracted reports whether a business field holds a real value rather than
// the Placeholder.
func Extracted(field string) bool {
	return field != "" && field != Placeholder
}

// ExtractRecord maps raw page data to a PageRecord. It never fails: a nil
// page or missing properties map yields a record with every business field
// set to Placeholder, and each field degrades independently.
func ExtractRecord(page *PageData) PageRecord {
	rec := PageRecord{
		CompanyName:   Placeholder,
		Status:        Placeholder,
		Assignee:      Placeholder,
		LiaisonStatus: Placeholder,
	}
	if page == nil {
		return rec
	}
	rec.ID = page.ID
	rec.URL = page.URL
	if t, err := time.Parse(time.RFC3339, page.LastEditedTime); err == nil {
		rec.LastEditedAt = t
	}
	if page.Properties == nil {
		return rec
	}
	if v := textValue(page.Properties, PropCompany); v != "" {
		rec.CompanyName = v
	}
	if v := selectValue(page.Properties, PropStatus); v != "" {
		rec.Status = v
	}
	if v := personValue(page.Properties, PropAssign); v != "" {
		rec.Assignee = v
	}
	if v := selectValue(page.Properties, PropLiaison); v != "" {
		rec.LiaisonStatus = v
	}
	return rec
}

// ExtractFromRaw decodes a stored raw properties blob and extracts a record
// for the given page id. Used for the previous-state side of a diff, where
// only the properties were persisted.
func ExtractFromRaw(pageID string, raw json.RawMessage) *PageRecord {
	var props map[string]PropertyValue
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil
	}
	rec := ExtractRecord(&PageData{ID: pageID, Properties: props})
	return &rec
}

// FormatJST renders a timestamp in the fixed display format used by every
// outbound message and audit row. The zero time renders as Placeholder.
func FormatJST(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.In(jst).Format("2006/01/02 15:04")
}

func textValue(props map[string]PropertyValue, name string) string {
	p, ok := props[name]
	if !ok {
		return ""
	}
	if len(p.Title) > 0 {
		return p.Title[0].PlainText
	}
	if len(p.RichText) > 0 {
		return p.RichText[0].PlainText
	}
	return ""
}

func selectValue(props map[string]PropertyValue, name string) string {
	p, ok := props[name]
	if !ok {
		return ""
	}
	if p.Status != nil {
		return p.Status.Name
	}
	if p.Select != nil {
		return p.Select.Name
	}
	return ""
}

func personValue(props map[string]PropertyValue, name string) string {
	p, ok := props[name]
	if !ok || len(p.People) == 0 {
		return ""
	}
	return p.People[0].Name
}
