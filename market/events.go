package market

import "github.com/dappmarket-org/dappmarket-go-base/types"

const (
	EventOffered = "Offered"
	EventBought  = "Bought"
)

type (
	// OfferedEvent records a new listing.
	OfferedEvent struct {
		_        struct{}      `cbor:",toarray"`
		ItemID   types.ItemID  `json:"itemId"`
		Registry types.Address `json:"registry"`
		TokenID  types.TokenID `json:"tokenId"`
		Price    uint64        `json:"price"`
		Seller   types.Address `json:"seller"`
	}

	// BoughtEvent records a settled purchase.
	BoughtEvent struct {
		_        struct{}      `cbor:",toarray"`
		ItemID   types.ItemID  `json:"itemId"`
		Registry types.Address `json:"registry"`
		TokenID  types.TokenID `json:"tokenId"`
		Price    uint64        `json:"price"`
		Seller   types.Address `json:"seller"`
		Buyer    types.Address `json:"buyer"`
	}
)

func (e *OfferedEvent) Name() string { return EventOffered }

func (e *OfferedEvent) Topics() []types.Address {
	return []types.Address{e.Seller}
}

func (e *BoughtEvent) Name() string { return EventBought }

func (e *BoughtEvent) Topics() []types.Address {
	return []types.Address{e.Seller, e.Buyer}
}
