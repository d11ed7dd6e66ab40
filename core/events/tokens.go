package events

import (
	"math/big"
	"strconv"
)

const (
	// TypeTokenMinted is emitted when the token ledger credits an account.
	TypeTokenMinted = "tokens.minted"
	// TypeTokenURIUpdated is emitted when the metadata base URI changes.
	TypeTokenURIUpdated = "tokens.uri.updated"
)

// TokenMinted records a balance credit on the multi-token ledger.
type TokenMinted struct {
	Account [20]byte
	TokenID uint64
	Amount  *big.Int
}

func (TokenMinted) EventType() string { return TypeTokenMinted }

func (e TokenMinted) Record() *Record {
	return &Record{
		Type: TypeTokenMinted,
		Attributes: map[string]string{
			"account": formatAddress(e.Account),
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// TokenURIUpdated records a metadata base URI rotation.
type TokenURIUpdated struct {
	BaseURI string
}

func (TokenURIUpdated) EventType() string { return TypeTokenURIUpdated }

func (e TokenURIUpdated) Record() *Record {
	return &Record{
		Type:       TypeTokenURIUpdated,
		Attributes: map[string]string{"baseUri": e.BaseURI},
	}
}
