package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/emperorhan/xns-resolver/internal/ledger/xrpl"
	"github.com/emperorhan/xns-resolver/internal/metadata"
	"github.com/emperorhan/xns-resolver/internal/registry"
	"github.com/emperorhan/xns-resolver/internal/resolver"
	"github.com/spf13/cobra"
)

const defaultTimeout = 2 * time.Minute

type cliOptions struct {
	network      string
	rpcURL       string
	clioURL      string
	gateways     []string
	timeout      time.Duration
	fetchTimeout time.Duration
	jsonOut      bool
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "xnsctl",
		Short: "Resolve XRP Ledger domain names",
		Long: `xnsctl looks up domain names issued as NFTs on the XRP Ledger by the
registered naming services (XNS, XRPDomains).

	xnsctl resolve alice.xrp        finds the account holding alice.xrp
	xnsctl reverse rXXXX...         lists every domain held by an account

Use --network to pick mainnet, testnet or devnet, or --network custom with
--rpc-url and --clio-url for a private node. Issuer accounts are only known
for mainnet; custom networks reuse them.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.network, "network", "n", "mainnet", "mainnet, testnet, devnet or custom")
	flags.StringVar(&opts.rpcURL, "rpc-url", "", "rippled JSON-RPC URL (default: network's public node)")
	flags.StringVar(&opts.clioURL, "clio-url", "", "Clio JSON-RPC URL used for nfts_by_issuer (default: network's public node)")
	flags.StringArrayVarP(&opts.gateways, "gateway", "g", nil, "IPFS gateway base URL, tried in the order given; repeatable")
	flags.DurationVarP(&opts.timeout, "timeout", "t", defaultTimeout, "overall deadline for the lookup")
	flags.DurationVar(&opts.fetchTimeout, "fetch-timeout", metadata.DefaultFetchTimeout, "deadline for each metadata fetch")
	flags.BoolVar(&opts.jsonOut, "json", false, "print results as JSON")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newResolveCmd(opts), newReverseCmd(opts))
	return root
}

// build wires a resolver from the flags. Logs go to stderr so stdout stays
// clean for --json.
func (o *cliOptions) build(stderr io.Writer) (*resolver.Resolver, error) {
	network, err := model.ParseNetwork(o.network)
	if err != nil {
		return nil, err
	}
	if network == model.NetworkCustom && (o.rpcURL == "" || o.clioURL == "") {
		return nil, fmt.Errorf("--network custom needs --rpc-url and --clio-url")
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	reg := registry.Default()
	ledger := xrpl.NewAdapter(xrpl.Config{
		Network: network,
		RPCURL:  o.rpcURL,
		ClioURL: o.clioURL,
	}, logger)
	parser := metadata.NewParser(metadata.Config{
		Gateways:     o.gateways,
		FetchTimeout: o.fetchTimeout,
		Registry:     reg,
		Logger:       logger,
	})
	return resolver.New(ledger, parser, reg, network, resolver.WithLogger(logger)), nil
}

func (o *cliOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}
