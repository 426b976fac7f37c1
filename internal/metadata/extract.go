package metadata

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
)

// Fields is what an Extractor pulls out of a metadata document.
type Fields struct {
	Name        string
	Addresses   map[string]string
	TextRecords map[string]string
	ExpiresAt   *time.Time
	Description string
	Image       string
}

// Extractor reads a metadata document. accept reports whether a normalized
// candidate is a valid domain name; the extractor returns ErrMissingField
// when no candidate passes.
type Extractor func(doc map[string]any, accept func(name string) bool) (Fields, error)

// ExtractDefault understands the shape both XNS and XRP Domains mint.
// The name is taken from "name", then from attributes whose trait_type is
// "domain" or "name" (document order), then from a top-level "domain".
func ExtractDefault(doc map[string]any, accept func(string) bool) (Fields, error) {
	name, ok := firstName(doc, accept)
	if !ok {
		return Fields{}, ErrMissingField
	}

	f := Fields{
		Name:        name,
		Addresses:   stringMap(doc["addresses"], strings.ToUpper),
		TextRecords: stringMap(firstPresent(doc, "text_records", "records"), nil),
		Description: stringValue(doc["description"]),
		Image:       stringValue(doc["image"]),
	}
	if exp, ok := parseExpiry(doc["expires_at"]); ok {
		f.ExpiresAt = &exp
	} else if exp, ok := parseExpiry(traitValue(doc, "expiration", "expires_at")); ok {
		f.ExpiresAt = &exp
	}
	return f, nil
}

func firstName(doc map[string]any, accept func(string) bool) (string, bool) {
	candidates := []any{doc["name"]}
	candidates = append(candidates, traitValues(doc, "domain", "name")...)
	candidates = append(candidates, doc["domain"])
	for _, c := range candidates {
		s, ok := c.(string)
		if !ok {
			continue
		}
		if name := model.NormalizeName(s); accept(name) {
			return name, true
		}
	}
	return "", false
}

// traitValue returns the value of the first attribute whose trait_type
// matches one of traits, in the order of traits.
func traitValue(doc map[string]any, traits ...string) any {
	attrs, ok := doc["attributes"].([]any)
	if !ok {
		return nil
	}
	for _, trait := range traits {
		for _, a := range attrs {
			obj, ok := a.(map[string]any)
			if !ok {
				continue
			}
			tt, _ := obj["trait_type"].(string)
			if strings.EqualFold(strings.TrimSpace(tt), trait) {
				return obj["value"]
			}
		}
	}
	return nil
}

// traitValues returns, in document order, the values of every attribute
// whose trait_type is one of traits.
func traitValues(doc map[string]any, traits ...string) []any {
	attrs, ok := doc["attributes"].([]any)
	if !ok {
		return nil
	}
	var out []any
	for _, a := range attrs {
		obj, ok := a.(map[string]any)
		if !ok {
			continue
		}
		tt, _ := obj["trait_type"].(string)
		tt = strings.TrimSpace(tt)
		for _, trait := range traits {
			if strings.EqualFold(tt, trait) {
				out = append(out, obj["value"])
				break
			}
		}
	}
	return out
}

func firstPresent(doc map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			return v
		}
	}
	return nil
}

// stringMap keeps the string-valued entries of a JSON object, optionally
// rewriting keys. Anything else yields nil.
func stringMap(v any, key func(string) string) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, raw := range obj {
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		if key != nil {
			k = key(k)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// parseExpiry accepts unix seconds (number or numeric string) or RFC3339.
func parseExpiry(v any) (time.Time, bool) {
	switch t := v.(type) {
	case json.Number:
		if secs, err := t.Int64(); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC(), true
		}
	case string:
		t = strings.TrimSpace(t)
		if secs, err := strconv.ParseInt(t, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC(), true
		}
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
