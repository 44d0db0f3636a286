package billing

import (
	"bytes"
	"encoding/json"
)

// InvoiceMetadata is the print-layout state saved by the invoice editor.
// Unknown top-level fields, and known ones of an unexpected shape, survive a
// decode/encode cycle.
type InvoiceMetadata struct {
	Items []map[string]any `json:"items"`
	To    map[string]any   `json:"to,omitempty"`
	From  map[string]any   `json:"from,omitempty"`

	extra map[string]json.RawMessage
}

// ParseMetadata decodes an editor payload. It must be a JSON object.
func ParseMetadata(raw string) (InvoiceMetadata, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return InvoiceMetadata{}, ErrInvalidMetadata
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return InvoiceMetadata{}, ErrInvalidMetadata
	}
	var meta InvoiceMetadata
	keep := func(key string, value json.RawMessage) {
		if meta.extra == nil {
			meta.extra = make(map[string]json.RawMessage)
		}
		meta.extra[key] = value
	}
	for key, value := range fields {
		var err error
		switch key {
		case "items":
			err = json.Unmarshal(value, &meta.Items)
		case "to":
			err = json.Unmarshal(value, &meta.To)
		case "from":
			err = json.Unmarshal(value, &meta.From)
		default:
			keep(key, value)
		}
		if err != nil {
			// a block of an unexpected shape is carried through untouched
			switch key {
			case "items":
				meta.Items = nil
			case "to":
				meta.To = nil
			case "from":
				meta.From = nil
			}
			keep(key, value)
		}
	}
	if meta.Items == nil {
		meta.Items = []map[string]any{}
	}
	return meta, nil
}

// MetadataOrEmpty decodes stored metadata, falling back to the empty shape.
func MetadataOrEmpty(raw *string) (InvoiceMetadata, bool) {
	if raw == nil {
		return InvoiceMetadata{Items: []map[string]any{}}, true
	}
	meta, err := ParseMetadata(*raw)
	if err != nil {
		return InvoiceMetadata{Items: []map[string]any{}}, false
	}
	return meta, true
}

// MarshalJSON writes known fields alongside preserved unknown ones.
func (m InvoiceMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.extra)+3)
	for k, v := range m.extra {
		out[k] = v
	}
	items := m.Items
	if items == nil {
		items = []map[string]any{}
	}
	if _, kept := m.extra["items"]; !kept || len(m.Items) > 0 {
		out["items"] = items
	}
	if m.To != nil {
		out["to"] = m.To
	}
	if m.From != nil {
		out["from"] = m.From
	}
	return json.Marshal(out)
}
