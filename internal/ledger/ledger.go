// Package ledger defines what the resolver needs from the XRP Ledger.
package ledger

//go:generate mockgen -source=ledger.go -destination=mocks/mock_ledger.go -package=mocks

import (
	"context"

	"github.com/emperorhan/xns-resolver/internal/domain/model"
)

// Ledger enumerates NFTs. Implementations page through results internally
// and return either the complete sequence in ledger order or an error.
type Ledger interface {
	// NFTsByIssuer returns every live NFT minted by issuer, with its current owner.
	NFTsByIssuer(ctx context.Context, issuer string) ([]model.NftHandle, error)

	// NFTsByOwner returns every NFT currently held by owner. An account
	// that does not exist holds nothing.
	NFTsByOwner(ctx context.Context, owner string) ([]model.NftHandle, error)
}
