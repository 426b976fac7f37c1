package model

import (
	"encoding/hex"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode"
)

// TokenID is the 256-bit NFTokenID assigned by the ledger.
type TokenID [32]byte

// ParseTokenID decodes a 64 character hex NFTokenID (any case).
func ParseTokenID(s string) (TokenID, error) {
	var id TokenID
	s = strings.TrimSpace(s)
	if len(s) != hex.EncodedLen(len(id)) {
		return id, fmt.Errorf("nft id %q: want %d hex chars, got %d", s, hex.EncodedLen(len(id)), len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("nft id %q: %w", s, err)
	}
	return id, nil
}

// String renders the id the way the ledger does: uppercase hex.
func (id TokenID) String() string {
	return strings.ToUpper(hex.EncodeToString(id[:]))
}

func (id TokenID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TokenID) UnmarshalText(b []byte) error {
	parsed, err := ParseTokenID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NftHandle is an NFT as enumerated from the ledger. URI holds the raw hex
// text of the URI field.
type NftHandle struct {
	ID     TokenID
	Owner  string
	Issuer string
	URI    []byte
}

// DomainRecord binds a domain name to the NFT that represents it.
type DomainRecord struct {
	Name        string            `json:"name"`
	Owner       string            `json:"owner"`
	Issuer      string            `json:"issuer"`
	NFTokenID   TokenID           `json:"nft_id"`
	Service     NamingService     `json:"service"`
	Source      SourceKind        `json:"source"`
	Addresses   map[string]string `json:"addresses,omitempty"`
	TextRecords map[string]string `json:"text_records,omitempty"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	Description string            `json:"description,omitempty"`
	Image       string            `json:"image,omitempty"`
}

// Clone returns a copy that shares no mutable state with r.
func (r DomainRecord) Clone() DomainRecord {
	out := r
	out.Addresses = maps.Clone(r.Addresses)
	out.TextRecords = maps.Clone(r.TextRecords)
	if r.ExpiresAt != nil {
		t := *r.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}

// NormalizeName lowercases a domain and strips all whitespace from it.
func NormalizeName(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, raw)
}

const maxLabelLen = 63

// SplitName checks that an already-normalized name has the label.suffix
// shape and returns both halves. Labels are 1-63 chars of [a-z0-9-] and may
// not start or end with a hyphen. Suffixes are [a-z0-9]+.
func SplitName(name string) (label, suffix string, ok bool) {
	label, suffix, found := strings.Cut(name, ".")
	if !found || strings.Contains(suffix, ".") {
		return "", "", false
	}
	if label == "" || len(label) > maxLabelLen || suffix == "" {
		return "", "", false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return "", "", false
	}
	for _, c := range label {
		if !isAlnum(c) && c != '-' {
			return "", "", false
		}
	}
	for _, c := range suffix {
		if !isAlnum(c) {
			return "", "", false
		}
	}
	return label, suffix, true
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
