package rpc

import (
	"encoding/json"
	"fmt"
)

// rippled JSON-RPC framing: a method name and a single-element params array.

type Request struct {
	Method string           `json:"method"`
	Params []map[string]any `json:"params"`
}

type Response struct {
	Result json.RawMessage `json:"result"`
}

// resultStatus is embedded in every result object.
type resultStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorCode    int    `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// RPCError is an error result from rippled or Clio, e.g. actNotFound.
type RPCError struct {
	Code    string
	Number  int
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes the adapter and retry classifier care about.
const (
	ErrCodeActNotFound  = "actNotFound"
	ErrCodeObjNotFound  = "objectNotFound"
	ErrCodeTooBusy      = "tooBusy"
	ErrCodeSlowDown     = "slowDown"
	ErrCodeNoNetwork    = "noNetwork"
	ErrCodeNoCurrent    = "noCurrent"
	ErrCodeNoClosed     = "noClosed"
	ErrCodeLgrNotFound  = "lgrNotFound"
	ErrCodeInternal     = "internal"
	ErrCodeNotSupported = "notSupported"
)

// account_nfts response
type AccountNFT struct {
	Flags        uint32 `json:"Flags"`
	Issuer       string `json:"Issuer"`
	NFTokenID    string `json:"NFTokenID"`
	NFTokenTaxon uint32 `json:"NFTokenTaxon"`
	URI          string `json:"URI"`
	Serial       uint32 `json:"nft_serial"`
}

type AccountNFTsResult struct {
	Account   string          `json:"account"`
	NFTs      []AccountNFT    `json:"account_nfts"`
	Marker    json.RawMessage `json:"marker,omitempty"`
	Limit     int             `json:"limit"`
	Validated bool            `json:"validated"`
}

// nfts_by_issuer response (Clio only)
type IssuerNFT struct {
	NFTokenID   string `json:"nft_id"`
	LedgerIndex int64  `json:"ledger_index"`
	Owner       string `json:"owner"`
	IsBurned    bool   `json:"is_burned"`
	Flags       uint32 `json:"flags"`
	TransferFee uint32 `json:"transfer_fee"`
	Issuer      string `json:"issuer"`
	Taxon       uint32 `json:"nft_taxon"`
	Serial      uint32 `json:"nft_serial"`
	URI         string `json:"uri"`
}

type NFTsByIssuerResult struct {
	Issuer string          `json:"issuer"`
	NFTs   []IssuerNFT     `json:"nfts"`
	Marker json.RawMessage `json:"marker,omitempty"`
	Limit  int             `json:"limit"`
}
