package config

import (
	"fmt"
	"os"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/emperorhan/xns-resolver/internal/registry"
	"gopkg.in/yaml.v3"
)

// fileOverlay is the optional YAML file named by XNS_CONFIG_FILE:
//
//	gateways:
//	  - https://dweb.link/ipfs
//	services:
//	  - service: xns
//	    suffix: xrp
//	    issuers:
//	      testnet: rTestIssuer...
type fileOverlay struct {
	Gateways []string         `yaml:"gateways"`
	Services []serviceOverlay `yaml:"services"`
}

type serviceOverlay struct {
	Service string            `yaml:"service"`
	Suffix  string            `yaml:"suffix"`
	Issuers map[string]string `yaml:"issuers"`
}

// applyFile merges the overlay into c. Gateways from the file apply only
// when XNS_IPFS_GATEWAYS is unset; service rows extend or update the
// built-in registry.
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if len(c.Metadata.Gateways) == 0 {
		c.Metadata.Gateways = overlay.Gateways
	}

	if len(overlay.Services) == 0 {
		return nil
	}
	rows := make([]registry.Row, 0, len(overlay.Services))
	for _, svc := range overlay.Services {
		row := registry.Row{
			Service: model.NamingService(svc.Service),
			Suffix:  svc.Suffix,
			Issuers: make(map[model.Network]string, len(svc.Issuers)),
		}
		for rawNetwork, issuer := range svc.Issuers {
			network, err := model.ParseNetwork(rawNetwork)
			if err != nil {
				return fmt.Errorf("config file %s: service %q: %w", path, svc.Service, err)
			}
			row.Issuers[network] = issuer
		}
		rows = append(rows, row)
	}

	reg, err := c.Registry.With(rows...)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	c.Registry = reg
	return nil
}
