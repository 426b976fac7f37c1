package rpc

import (
	"context"
	"encoding/json"
	"fmt"
)

// PageLimit is the page size requested from both methods; rippled caps
// account_nfts at 400.
const PageLimit = 400

// AccountNFTs returns one page of NFTs held by account in the latest
// validated ledger. Pass the previous page's marker to continue.
func (c *Client) AccountNFTs(ctx context.Context, account string, marker json.RawMessage) (*AccountNFTsResult, error) {
	params := map[string]any{
		"account":      account,
		"limit":        PageLimit,
		"ledger_index": "validated",
	}
	if len(marker) > 0 {
		params["marker"] = marker
	}

	result, err := c.call(ctx, "account_nfts", params)
	if err != nil {
		return nil, fmt.Errorf("account_nfts(%s): %w", account, err)
	}

	var out AccountNFTsResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("unmarshal account_nfts: %w", err)
	}
	return &out, nil
}

// NFTsByIssuer returns one page of NFTs minted by issuer, including burned
// ones and each token's current owner. Clio only.
func (c *Client) NFTsByIssuer(ctx context.Context, issuer string, marker json.RawMessage) (*NFTsByIssuerResult, error) {
	params := map[string]any{
		"issuer":       issuer,
		"limit":        PageLimit,
		"ledger_index": "validated",
	}
	if len(marker) > 0 {
		params["marker"] = marker
	}

	result, err := c.call(ctx, "nfts_by_issuer", params)
	if err != nil {
		return nil, fmt.Errorf("nfts_by_issuer(%s): %w", issuer, err)
	}

	var out NFTsByIssuerResult
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, fmt.Errorf("unmarshal nfts_by_issuer: %w", err)
	}
	return &out, nil
}
