package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner  = "rPEPPER7kfTD9w2To4CQk6UCfuHM9c6GDY"
	testIssuer = "rYhfynZDrde1uSvvQAYctApg6DnVE5HKm"
)

func TestAccountNFTs_FirstPage(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		req := decodeRequest(t, r)
		assert.Equal(t, "account_nfts", req.Method)
		params := req.Params[0]
		assert.Equal(t, testOwner, params["account"])
		assert.Equal(t, float64(PageLimit), params["limit"])
		assert.Equal(t, "validated", params["ledger_index"])
		_, hasMarker := params["marker"]
		assert.False(t, hasMarker)

		return jsonHTTPResponse(http.StatusOK, `{"result":{
			"account":"`+testOwner+`",
			"account_nfts":[{
				"Flags":8,
				"Issuer":"`+testIssuer+`",
				"NFTokenID":"000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000099B0000000",
				"NFTokenTaxon":0,
				"URI":"697066733A2F2F",
				"nft_serial":153
			}],
			"marker":"page2",
			"limit":400,
			"validated":true,
			"status":"success"}}`), nil
	})

	res, err := client.AccountNFTs(context.Background(), testOwner, nil)
	require.NoError(t, err)
	require.Len(t, res.NFTs, 1)
	nft := res.NFTs[0]
	assert.Equal(t, testIssuer, nft.Issuer)
	assert.Equal(t, "697066733A2F2F", nft.URI)
	assert.Equal(t, uint32(153), nft.Serial)
	assert.Equal(t, uint32(8), nft.Flags)
	assert.JSONEq(t, `"page2"`, string(res.Marker))
	assert.True(t, res.Validated)
}

func TestAccountNFTs_PassesMarker(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		req := decodeRequest(t, r)
		assert.Equal(t, "page2", req.Params[0]["marker"])
		return jsonHTTPResponse(http.StatusOK, `{"result":{"account_nfts":[],"status":"success"}}`), nil
	})

	res, err := client.AccountNFTs(context.Background(), testOwner, json.RawMessage(`"page2"`))
	require.NoError(t, err)
	assert.Empty(t, res.NFTs)
	assert.Empty(t, res.Marker)
}

func TestAccountNFTs_ActNotFound(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return jsonHTTPResponse(http.StatusOK, `{"result":{"error":"actNotFound","error_code":19,"status":"error"}}`), nil
	})

	_, err := client.AccountNFTs(context.Background(), testOwner, nil)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, ErrCodeActNotFound, rpcErr.Code)
	assert.Contains(t, err.Error(), "account_nfts("+testOwner+")")
}

func TestNFTsByIssuer(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		req := decodeRequest(t, r)
		assert.Equal(t, "nfts_by_issuer", req.Method)
		assert.Equal(t, testIssuer, req.Params[0]["issuer"])
		assert.Equal(t, "validated", req.Params[0]["ledger_index"])

		return jsonHTTPResponse(http.StatusOK, `{"result":{
			"issuer":"`+testIssuer+`",
			"nfts":[
				{"nft_id":"000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000099B0000000","owner":"`+testOwner+`","is_burned":false,"uri":"AB","issuer":"`+testIssuer+`","nft_serial":1},
				{"nft_id":"000800006203F49C21D5D6E022CB16DE3538F248662FC73C00000099B0000001","owner":"`+testOwner+`","is_burned":true,"uri":"","issuer":"`+testIssuer+`","nft_serial":2}
			],
			"limit":400,
			"status":"success"}}`), nil
	})

	res, err := client.NFTsByIssuer(context.Background(), testIssuer, nil)
	require.NoError(t, err)
	require.Len(t, res.NFTs, 2)
	assert.Equal(t, testOwner, res.NFTs[0].Owner)
	assert.False(t, res.NFTs[0].IsBurned)
	assert.True(t, res.NFTs[1].IsBurned)
	assert.Empty(t, res.Marker)
}

func TestNFTsByIssuer_UnmarshalError(t *testing.T) {
	client := newTestClient(func(r *http.Request) (*http.Response, error) {
		return jsonHTTPResponse(http.StatusOK, `{"result":{"status":"success","nfts":"nope"}}`), nil
	})

	_, err := client.NFTsByIssuer(context.Background(), testIssuer, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal nfts_by_issuer")
}
