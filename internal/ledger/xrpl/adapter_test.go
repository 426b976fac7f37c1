package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/emperorhan/xns-resolver/internal/circuitbreaker"
	"github.com/emperorhan/xns-resolver/internal/domain/model"
	"github.com/emperorhan/xns-resolver/internal/ledger/xrpl/rpc"
	rpcmocks "github.com/emperorhan/xns-resolver/internal/ledger/xrpl/rpc/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testIssuer = "rYhfynZDrde1uSvvQAYctApg6DnVE5HKm"
	testOwner  = "rPEPPER7kfTD9w2To4CQk6UCfuHM9c6GDY"
)

func tokenHex(i int) string {
	return fmt.Sprintf("%064X", i)
}

type testHarness struct {
	adapter *Adapter
	rippled *rpcmocks.MockRPCClient
	clio    *rpcmocks.MockRPCClient
	sleeps  []time.Duration
}

func newTestAdapter(t *testing.T, cfg Config) *testHarness {
	ctrl := gomock.NewController(t)
	h := &testHarness{
		rippled: rpcmocks.NewMockRPCClient(ctrl),
		clio:    rpcmocks.NewMockRPCClient(ctrl),
	}
	if cfg.Network == "" {
		cfg.Network = model.NetworkTestnet
	}
	h.adapter = newAdapter(cfg, h.rippled, h.clio, slog.Default())
	h.adapter.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return nil
	}
	return h
}

func TestAdapter_RPCClientContractParity(t *testing.T) {
	t.Parallel()

	var _ rpc.RPCClient = (*rpc.Client)(nil)
	var _ rpc.RPCClient = (*rpcmocks.MockRPCClient)(nil)
}

func TestNewAdapter_DefaultEndpoints(t *testing.T) {
	a := NewAdapter(Config{Network: model.NetworkTestnet}, nil)
	assert.Equal(t, "https://s.altnet.rippletest.net:51234", a.rippled.(*rpc.Client).URL())
	assert.Equal(t, "https://clio.altnet.rippletest.net:51234", a.clio.(*rpc.Client).URL())
	assert.Equal(t, defaultMaxAttempts, a.maxAttempts)

	custom := NewAdapter(Config{Network: model.NetworkCustom, RPCURL: "http://a", ClioURL: "http://b"}, nil)
	assert.Equal(t, "http://a", custom.rippled.(*rpc.Client).URL())
	assert.Equal(t, "http://b", custom.clio.(*rpc.Client).URL())
}

func TestAdapter_NFTsByIssuer_PagesAndDropsBurned(t *testing.T) {
	h := newTestAdapter(t, Config{})
	ctx := context.Background()

	gomock.InOrder(
		h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, json.RawMessage(nil)).Return(&rpc.NFTsByIssuerResult{
			NFTs: []rpc.IssuerNFT{
				{NFTokenID: tokenHex(1), Owner: "rA", Issuer: testIssuer, URI: "AA"},
				{NFTokenID: tokenHex(2), Owner: "rB", Issuer: testIssuer, URI: "BB", IsBurned: true},
			},
			Marker: json.RawMessage(`"m1"`),
		}, nil),
		h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, json.RawMessage(`"m1"`)).Return(&rpc.NFTsByIssuerResult{
			NFTs: []rpc.IssuerNFT{
				{NFTokenID: tokenHex(3), Owner: "rC", URI: "CC"},
			},
		}, nil),
	)

	got, err := h.adapter.NFTsByIssuer(ctx, testIssuer)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, tokenHex(1), got[0].ID.String())
	assert.Equal(t, "rA", got[0].Owner)
	assert.Equal(t, []byte("AA"), got[0].URI)
	assert.Equal(t, tokenHex(3), got[1].ID.String())
	assert.Equal(t, testIssuer, got[1].Issuer, "missing issuer falls back to the queried one")
}

func TestAdapter_NFTsByIssuer_SkipsMalformedID(t *testing.T) {
	h := newTestAdapter(t, Config{})

	h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, gomock.Any()).Return(&rpc.NFTsByIssuerResult{
		NFTs: []rpc.IssuerNFT{
			{NFTokenID: "zz", Owner: "rA"},
			{NFTokenID: tokenHex(7), Owner: "rB"},
		},
	}, nil)

	got, err := h.adapter.NFTsByIssuer(context.Background(), testIssuer)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rB", got[0].Owner)
}

func TestAdapter_NFTsByIssuer_StuckMarker(t *testing.T) {
	h := newTestAdapter(t, Config{})

	h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, gomock.Any()).Return(&rpc.NFTsByIssuerResult{
		Marker: json.RawMessage(`"same"`),
	}, nil).Times(2)

	_, err := h.adapter.NFTsByIssuer(context.Background(), testIssuer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not advance")
}

func TestAdapter_NFTsByOwner(t *testing.T) {
	h := newTestAdapter(t, Config{})

	gomock.InOrder(
		h.rippled.EXPECT().AccountNFTs(gomock.Any(), testOwner, json.RawMessage(nil)).Return(&rpc.AccountNFTsResult{
			NFTs:   []rpc.AccountNFT{{NFTokenID: tokenHex(1), Issuer: testIssuer, URI: "AA"}},
			Marker: json.RawMessage(`"p2"`),
		}, nil),
		h.rippled.EXPECT().AccountNFTs(gomock.Any(), testOwner, json.RawMessage(`"p2"`)).Return(&rpc.AccountNFTsResult{
			NFTs:   []rpc.AccountNFT{{NFTokenID: tokenHex(2), Issuer: "rOther", URI: "BB"}},
			Marker: json.RawMessage(`null`),
		}, nil),
	)

	got, err := h.adapter.NFTsByOwner(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, testOwner, got[0].Owner)
	assert.Equal(t, testIssuer, got[0].Issuer)
	assert.Equal(t, "rOther", got[1].Issuer)
}

func TestAdapter_NFTsByOwner_ActNotFoundIsEmpty(t *testing.T) {
	h := newTestAdapter(t, Config{})

	h.rippled.EXPECT().AccountNFTs(gomock.Any(), testOwner, gomock.Any()).
		Return(nil, fmt.Errorf("account_nfts(%s): %w", testOwner, &rpc.RPCError{Code: rpc.ErrCodeActNotFound}))

	got, err := h.adapter.NFTsByOwner(context.Background(), testOwner)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, h.sleeps, "terminal errors are not retried")
}

func TestAdapter_RetriesTransientErrors(t *testing.T) {
	h := newTestAdapter(t, Config{MaxAttempts: 3, RetryBackoff: 100 * time.Millisecond})

	gomock.InOrder(
		h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, gomock.Any()).
			Return(nil, &rpc.RPCError{Code: rpc.ErrCodeTooBusy}),
		h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, gomock.Any()).
			Return(nil, errors.New("http status 503: busy")),
		h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, gomock.Any()).
			Return(&rpc.NFTsByIssuerResult{NFTs: []rpc.IssuerNFT{{NFTokenID: tokenHex(1), Owner: "rA"}}}, nil),
	)

	got, err := h.adapter.NFTsByIssuer(context.Background(), testIssuer)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, h.sleeps)
}

func TestAdapter_GivesUpAfterMaxAttempts(t *testing.T) {
	h := newTestAdapter(t, Config{MaxAttempts: 2})

	h.rippled.EXPECT().AccountNFTs(gomock.Any(), testOwner, gomock.Any()).
		Return(nil, &rpc.RPCError{Code: rpc.ErrCodeNoNetwork}).Times(2)

	_, err := h.adapter.NFTsByOwner(context.Background(), testOwner)
	require.Error(t, err)
	var rpcErr *rpc.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpc.ErrCodeNoNetwork, rpcErr.Code)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Len(t, h.sleeps, 1)
}

func TestAdapter_TerminalErrorNotRetried(t *testing.T) {
	h := newTestAdapter(t, Config{MaxAttempts: 5})

	h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, gomock.Any()).
		Return(nil, &rpc.RPCError{Code: "invalidParams"}).Times(1)

	_, err := h.adapter.NFTsByIssuer(context.Background(), testIssuer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enumerate nfts issued by")
	assert.Empty(t, h.sleeps)
}

func TestAdapter_CircuitOpensOnRepeatedTransientFailures(t *testing.T) {
	var transitions []string
	h := newTestAdapter(t, Config{
		MaxAttempts: 1,
		OnBreakerChange: func(from, to circuitbreaker.State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	h.clio.EXPECT().NFTsByIssuer(gomock.Any(), testIssuer, gomock.Any()).
		Return(nil, errors.New("connection refused")).Times(5)

	for i := 0; i < 5; i++ {
		_, err := h.adapter.NFTsByIssuer(context.Background(), testIssuer)
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, h.adapter.breaker.GetState())
	assert.Equal(t, []string{"closed->open"}, transitions)

	_, err := h.adapter.NFTsByIssuer(context.Background(), testIssuer)
	require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

func TestAdapter_ContextCanceled(t *testing.T) {
	h := newTestAdapter(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	h.rippled.EXPECT().AccountNFTs(gomock.Any(), testOwner, gomock.Any()).
		DoAndReturn(func(context.Context, string, json.RawMessage) (*rpc.AccountNFTsResult, error) {
			cancel()
			return nil, errors.New("http request: context canceled")
		})

	_, err := h.adapter.NFTsByOwner(ctx, testOwner)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name     string
		prev     json.RawMessage
		next     json.RawMessage
		wantDone bool
		wantErr  bool
	}{
		{name: "absent", next: nil, wantDone: true},
		{name: "null", next: json.RawMessage("null"), wantDone: true},
		{name: "empty string", next: json.RawMessage(`""`), wantDone: true},
		{name: "string", next: json.RawMessage(`"abc"`)},
		{name: "object", prev: json.RawMessage(`{"a":1}`), next: json.RawMessage(`{"a":2}`)},
		{name: "stuck", prev: json.RawMessage(`"abc"`), next: json.RawMessage(`"abc"`), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, done, err := advance(tt.prev, tt.next)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDone, done)
			if !done {
				assert.JSONEq(t, string(tt.next), string(next))
			}
		})
	}
}
