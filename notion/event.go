// Package notion decodes inbound Notion webhook events and extracts the
// business fields the relay tracks. Extraction is total: malformed or missing
// properties degrade to the 不明 placeholder instead of failing the call.
package notion

import (
	"encoding/json"
	"fmt"
)

// Event is the inbound webhook body. Notion wraps the updated page under
// "data"; everything else in the envelope is ignored.
type Event struct {
	Data *PageData `json:"data"`
}

// PageData is the updated page as delivered by Notion.
type PageData struct {
	ID             string                   `json:"id"`
	URL            string                   `json:"url"`
	LastEditedTime string                   `json:"last_edited_time"`
	Properties     map[string]PropertyValue `json:"properties"`
}

// PropertyValue is one typed Notion property. Only the variants the relay
// reads are decoded; unknown types simply leave every branch nil.
type PropertyValue struct {
	Type     string       `json:"type"`
	Title    []RichText   `json:"title,omitempty"`
	RichText []RichText   `json:"rich_text,omitempty"`
	Status   *SelectValue `json:"status,omitempty"`
	Select   *SelectValue `json:"select,omitempty"`
	People   []Person     `json:"people,omitempty"`
}

// RichText is a single rich text fragment (title and rich_text properties).
type RichText struct {
	PlainText string `json:"plain_text"`
}

// SelectValue is the selected option of a status or select property.
type SelectValue struct {
	Name string `json:"name"`
}

// Person is one entry of a people property.
type Person struct {
	Name string `json:"name"`
}

// ParseEvent decodes an inbound webhook body. It fails only on unparseable
// JSON or a missing data/page-id envelope; property-level damage is handled
// later by ExtractRecord.
func ParseEvent(body []byte) (*Event, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("notion: empty body")
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("notion: parse body: %w", err)
	}
	if ev.Data == nil {
		return nil, fmt.Errorf("notion: body has no data object")
	}
	if ev.Data.ID == "" {
		return nil, fmt.Errorf("notion: page data has no id")
	}
	return &ev, nil
}
