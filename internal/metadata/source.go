package metadata

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/ipfs/go-cid"
)

// source is a decoded NFT URI. For ipfs, target is "<cid>[/path]"; for http
// it is the full URL; for embedded, doc holds the parsed document.
type source struct {
	kind   model.SourceKind
	target string
	doc    map[string]any
}

// decodeURI turns the ledger's hex URI field into text.
func decodeURI(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: empty uri", ErrInvalidEncoding)
	}
	decoded := make([]byte, hex.DecodedLen(len(raw)))
	if _, err := hex.Decode(decoded, raw); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("%w: uri is not valid utf-8", ErrInvalidEncoding)
	}
	return strings.TrimSpace(string(decoded)), nil
}

// classify picks the source kind of a decoded URI.
func classify(uri string) (source, error) {
	lower := strings.ToLower(uri)
	switch {
	case strings.HasPrefix(lower, "ipfs://"):
		target, err := ipfsTarget(uri[len("ipfs://"):])
		if err != nil {
			return source{}, err
		}
		return source{kind: model.SourceIPFS, target: target}, nil

	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return source{kind: model.SourceHTTP, target: uri}, nil

	case isBareCID(uri):
		target, err := ipfsTarget(uri)
		if err != nil {
			return source{}, err
		}
		return source{kind: model.SourceIPFS, target: target}, nil
	}

	doc, err := decodeDocument([]byte(uri))
	if err != nil {
		return source{}, fmt.Errorf("%w: uri is neither a link nor a json object: %v", ErrInvalidEncoding, err)
	}
	return source{kind: model.SourceEmbedded, doc: doc}, nil
}

// ipfsTarget validates the CID of "<cid>[/path]", tolerating a leading
// "ipfs/" that some minters put after the scheme.
func ipfsTarget(rest string) (string, error) {
	rest = strings.TrimPrefix(strings.TrimLeft(rest, "/"), "ipfs/")
	root, path, _ := strings.Cut(rest, "/")
	c, err := cid.Decode(root)
	if err != nil {
		return "", fmt.Errorf("%w: bad ipfs cid %q: %v", ErrInvalidEncoding, root, err)
	}
	if path == "" {
		return c.String(), nil
	}
	return c.String() + "/" + path, nil
}

func isBareCID(uri string) bool {
	root, _, _ := strings.Cut(uri, "/")
	if root == "" || strings.ContainsAny(root, "{}[]\": ") {
		return false
	}
	_, err := cid.Decode(root)
	return err == nil
}

// decodeDocument parses a metadata document, which must be a JSON object.
// Numbers are kept as json.Number.
func decodeDocument(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document is null")
	}
	return doc, nil
}
