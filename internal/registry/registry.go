// Package registry holds the static table of known naming services and the
// issuing account each one uses per network.
package registry

import (
	"fmt"
	"slices"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
)

// Row describes one naming service. Issuers maps a network to the account
// that mints the service's domain NFTs there; a missing network means the
// service is not deployed on it.
type Row struct {
	Service model.NamingService
	Suffix  string
	Issuers map[model.Network]string
}

// Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	rows     []Row
	suffixes map[string]struct{}
}

// Default returns the built-in table. Services are listed in the order
// Resolve scans them.
func Default() *Registry {
	r, err := New(
		Row{
			Service: model.ServiceXNS,
			Suffix:  "xrp",
			Issuers: map[model.Network]string{
				model.NetworkMainnet: "rYhfynZDrde1uSvvQAYctApg6DnVE5HKm",
			},
		},
		Row{
			Service: model.ServiceXRPDomains,
			Suffix:  "xrp",
			Issuers: map[model.Network]string{
				model.NetworkMainnet: "r4pM3nT7r7X1k2WMcSw5Sz8ftUu33TEfA4",
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// New builds a registry from rows, copying them so later edits by the caller
// have no effect.
func New(rows ...Row) (*Registry, error) {
	r := &Registry{suffixes: make(map[string]struct{})}
	seen := make(map[model.NamingService]bool, len(rows))
	for _, row := range rows {
		if row.Service == "" {
			return nil, fmt.Errorf("registry: empty service name")
		}
		if seen[row.Service] {
			return nil, fmt.Errorf("registry: duplicate service %q", row.Service)
		}
		if _, _, ok := model.SplitName("x." + row.Suffix); !ok {
			return nil, fmt.Errorf("registry: service %q has invalid suffix %q", row.Service, row.Suffix)
		}
		seen[row.Service] = true

		issuers := make(map[model.Network]string, len(row.Issuers))
		for network, issuer := range row.Issuers {
			if issuer != "" {
				issuers[network] = issuer
			}
		}
		r.rows = append(r.rows, Row{Service: row.Service, Suffix: row.Suffix, Issuers: issuers})
		r.suffixes[row.Suffix] = struct{}{}
	}
	return r, nil
}

// With returns a new registry where the given rows replace same-named rows
// (keeping their position) or are appended.
func (r *Registry) With(rows ...Row) (*Registry, error) {
	merged := slices.Clone(r.rows)
	for _, row := range rows {
		idx := slices.IndexFunc(merged, func(existing Row) bool { return existing.Service == row.Service })
		if idx < 0 {
			merged = append(merged, row)
			continue
		}
		if row.Suffix == "" {
			row.Suffix = merged[idx].Suffix
		}
		combined := make(map[model.Network]string, len(merged[idx].Issuers)+len(row.Issuers))
		for n, a := range merged[idx].Issuers {
			combined[n] = a
		}
		for n, a := range row.Issuers {
			combined[n] = a
		}
		row.Issuers = combined
		merged[idx] = row
	}
	return New(merged...)
}

// Services lists services in registration order.
func (r *Registry) Services() []model.NamingService {
	out := make([]model.NamingService, len(r.rows))
	for i, row := range r.rows {
		out[i] = row.Service
	}
	return out
}

// Issuer returns the issuing account of service on network. Custom networks
// use the mainnet issuer unless a custom row is present.
func (r *Registry) Issuer(service model.NamingService, network model.Network) (string, bool) {
	for _, row := range r.rows {
		if row.Service != service {
			continue
		}
		if issuer, ok := row.Issuers[network]; ok {
			return issuer, true
		}
		if network == model.NetworkCustom {
			issuer, ok := row.Issuers[model.NetworkMainnet]
			return issuer, ok
		}
		return "", false
	}
	return "", false
}

// ServiceForIssuer maps an NFT issuer back to the service it belongs to.
func (r *Registry) ServiceForIssuer(network model.Network, issuer string) (model.NamingService, bool) {
	for _, row := range r.rows {
		if candidate, ok := r.Issuer(row.Service, network); ok && candidate == issuer {
			return row.Service, true
		}
	}
	return "", false
}

// KnownSuffix reports whether any service issues names under suffix.
func (r *Registry) KnownSuffix(suffix string) bool {
	_, ok := r.suffixes[suffix]
	return ok
}

// Suffixes returns the distinct suffixes in sorted order.
func (r *Registry) Suffixes() []string {
	out := make([]string, 0, len(r.suffixes))
	for s := range r.suffixes {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
