package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultLocale is used when a requested translation is missing.
const DefaultLocale = "en"

// LocalizedText holds a display string per locale, e.g. {"en": "Shirt", "ar": "قميص"}.
// The backend sometimes sends a bare string; it is stored under DefaultLocale.
type LocalizedText map[string]string

func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = LocalizedText{DefaultLocale: s}
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return fmt.Errorf("localized text: %w", err)
	}
	*t = m
	return nil
}

// Get returns the text for locale, then DefaultLocale, then the first
// non-empty translation by locale order.
func (t LocalizedText) Get(locale string) string {
	if v := t[locale]; v != "" {
		return v
	}
	if v := t[DefaultLocale]; v != "" {
		return v
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if t[k] != "" {
			return t[k]
		}
	}
	return ""
}

// Clone returns an independent copy.
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
