package types

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// Address identifies a ledger account (an externally owned caller or
	// a deployed contract instance).
	Address = common.Address

	// TokenID identifies a token within one Token Registry instance.
	// IDs are assigned sequentially starting from 1 and are never reused.
	TokenID uint64

	// ItemID identifies a listing within one Marketplace instance.
	// IDs are assigned sequentially starting from 1 and are never reused.
	ItemID uint64
)

// ZeroAddress is the null account, used as the sender of mint transfers.
var ZeroAddress = Address{}

func (id TokenID) Bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func (id TokenID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

func (id ItemID) Bytes() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func (id ItemID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}
