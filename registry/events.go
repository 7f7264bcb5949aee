package registry

import "github.com/dappmarket-org/dappmarket-go-base/types"

const (
	EventTransfer       = "Transfer"
	EventApproval       = "Approval"
	EventApprovalForAll = "ApprovalForAll"
)

type (
	// TransferEvent records an ownership change. A mint is a transfer
	// from the zero address.
	TransferEvent struct {
		_       struct{}      `cbor:",toarray"`
		From    types.Address `json:"from"`
		To      types.Address `json:"to"`
		TokenID types.TokenID `json:"tokenId"`
	}

	// ApprovalEvent records a per-token approval grant.
	ApprovalEvent struct {
		_        struct{}      `cbor:",toarray"`
		Owner    types.Address `json:"owner"`
		Approved types.Address `json:"approved"`
		TokenID  types.TokenID `json:"tokenId"`
	}

	// ApprovalForAllEvent records a blanket operator grant or revocation.
	ApprovalForAllEvent struct {
		_        struct{}      `cbor:",toarray"`
		Owner    types.Address `json:"owner"`
		Operator types.Address `json:"operator"`
		Approved bool          `json:"approved"`
	}
)

func (e *TransferEvent) Name() string { return EventTransfer }

func (e *TransferEvent) Topics() []types.Address {
	return []types.Address{e.From, e.To}
}

func (e *ApprovalEvent) Name() string { return EventApproval }

func (e *ApprovalEvent) Topics() []types.Address {
	return []types.Address{e.Owner, e.Approved}
}

func (e *ApprovalForAllEvent) Name() string { return EventApprovalForAll }

func (e *ApprovalForAllEvent) Topics() []types.Address {
	return []types.Address{e.Owner, e.Operator}
}
