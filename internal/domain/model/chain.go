package model

import (
	"fmt"
	"strings"
)

type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
	// NetworkCustom is a caller-supplied endpoint. Issuer lookups fall back
	// to the mainnet table unless the registry says otherwise.
	NetworkCustom Network = "custom"
)

func (n Network) String() string {
	return string(n)
}

// ParseNetwork accepts the network names used in config and CLI flags.
func ParseNetwork(raw string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(raw))); n {
	case NetworkMainnet, NetworkTestnet, NetworkDevnet, NetworkCustom:
		return n, nil
	case "":
		return NetworkMainnet, nil
	default:
		return "", fmt.Errorf("unknown network %q", raw)
	}
}

// Endpoints are the default rippled and Clio JSON-RPC URLs of a built-in network.
type Endpoints struct {
	RPCURL  string
	ClioURL string
}

var defaultEndpoints = map[Network]Endpoints{
	NetworkMainnet: {RPCURL: "https://s1.ripple.com:51234", ClioURL: "https://s2.ripple.com:51234"},
	NetworkTestnet: {RPCURL: "https://s.altnet.rippletest.net:51234", ClioURL: "https://clio.altnet.rippletest.net:51234"},
	NetworkDevnet:  {RPCURL: "https://s.devnet.rippletest.net:51234", ClioURL: "https://clio.devnet.rippletest.net:51234"},
}

// DefaultEndpoints returns the public endpoints for n. Custom networks have none.
func DefaultEndpoints(n Network) (Endpoints, bool) {
	ep, ok := defaultEndpoints[n]
	return ep, ok
}

// NamingService identifies an organization issuing domain NFTs.
type NamingService string

const (
	ServiceXNS        NamingService = "xns"        // xrpns.com
	ServiceXRPDomains NamingService = "xrpdomains" // xrpdomains.xyz
)

func (s NamingService) String() string {
	return string(s)
}

// SourceKind records where a domain's metadata was read from.
type SourceKind string

const (
	SourceEmbedded SourceKind = "embedded"
	SourceIPFS     SourceKind = "ipfs"
	SourceHTTP     SourceKind = "http"
)

func (k SourceKind) String() string {
	return string(k)
}
