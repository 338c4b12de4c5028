// Package artifact extracts the structured diagnostics payload (SBAR note and
// order bundle) embedded in a stage's free-text output.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Type is the persisted artifact_type for diagnostics payloads.
const Type = "diagnostics"

// Artifact is the diagnostics payload produced by the orders stage.
type Artifact struct {
	SBARNote          string          `json:"sbar_note,omitempty"`
	OrderBundle       *OrderBundle    `json:"order_bundle,omitempty"`
	MedOptions        List            `json:"med_options,omitempty"`
	Contraindications List            `json:"contraindications,omitempty"`
	Raw               json.RawMessage `json:"-"`
}

// OrderBundle groups drafted orders.
type OrderBundle struct {
	Labs     List `json:"labs,omitempty"`
	Imaging  List `json:"imaging,omitempty"`
	Cultures List `json:"cultures,omitempty"`
}

// Items returns labs, cultures and imaging orders in display order.
func (a *Artifact) Items() []string {
	if a == nil || a.OrderBundle == nil {
		return nil
	}
	var out []string
	out = append(out, a.OrderBundle.Labs...)
	out = append(out, a.OrderBundle.Cultures...)
	out = append(out, a.OrderBundle.Imaging...)
	return out
}

// HasOrders reports whether an order bundle was present in the payload.
func (a *Artifact) HasOrders() bool {
	return a != nil && a.OrderBundle != nil
}

// List is a list of display strings.
type List []string

// ErrInvalid is returned for payloads that are not a JSON object.
var ErrInvalid = errors.New("artifact payload was not a JSON object")

// Extract finds the substring spanning the first '{' to the last '}' in text
// and parses it. Anything else in text is ignored. It reports false when no
// such span exists or it is not valid JSON; callers treat that as
// "no artifact yet".
func Extract(text string) (*Artifact, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return nil, false
	}
	candidate := text[start : end+1]
	result, err := Parse([]byte(candidate))
	if err != nil {
		return nil, false
	}
	return result, true
}

// Parse reads a JSON object payload. Only syntax is checked; fields of an
// unexpected shape are rendered as text, widened to a list, or dropped.
func Parse(data []byte) (*Artifact, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to parse artifact: %w", ErrInvalid)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrInvalid
	}
	ret := &Artifact{
		SBARNote:          text(root.Get("sbar_note")),
		MedOptions:        list(root.Get("med_options")),
		Contraindications: list(root.Get("contraindications")),
		Raw:               append(json.RawMessage(nil), data...),
	}
	if bundle := root.Get("order_bundle"); bundle.IsObject() {
		ret.OrderBundle = &OrderBundle{
			Labs:     list(bundle.Get("labs")),
			Imaging:  list(bundle.Get("imaging")),
			Cultures: list(bundle.Get("cultures")),
		}
	}
	return ret, nil
}

// text renders any JSON value as display text: objects become "key: value"
// lines, arrays are joined with "; ".
func text(value gjson.Result) string {
	switch {
	case !value.Exists() || value.Type == gjson.Null:
		return ""
	case value.IsObject():
		var lines []string
		value.ForEach(func(key, item gjson.Result) bool {
			if v := text(item); v != "" {
				lines = append(lines, key.String()+": "+v)
			}
			return true
		})
		return strings.Join(lines, "\n")
	case value.IsArray():
		var parts []string
		for _, item := range value.Array() {
			if v := text(item); v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, "; ")
	}
	return strings.TrimSpace(value.String())
}

// list reads a list of display strings. A scalar becomes a one element list;
// nested objects and arrays keep their compact JSON form; anything else is
// dropped.
func list(value gjson.Result) List {
	switch {
	case value.IsArray():
		var out List
		for _, item := range value.Array() {
			switch {
			case item.Type == gjson.Null:
			case item.IsObject() || item.IsArray():
				out = append(out, strings.TrimSpace(item.Raw))
			default:
				out = append(out, item.String())
			}
		}
		return out
	case value.Type == gjson.String, value.Type == gjson.Number:
		return List{value.String()}
	}
	return nil
}
