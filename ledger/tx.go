package ledger

import (
	"fmt"

	"github.com/dappmarket-org/dappmarket-go-base/cbor"
	"github.com/dappmarket-org/dappmarket-go-base/types"
	"github.com/dappmarket-org/dappmarket-go-base/util"
)

// Tx is the staging buffer of a single mutating operation. Balance moves
// and emitted events are collected here and become visible only when the
// whole operation succeeds; a failed operation discards the buffer.
type Tx struct {
	ledger   *Ledger
	balances map[types.Address]uint64
	events   []stagedEvent
}

type stagedEvent struct {
	contract types.Address
	name     string
	topics   []types.Address
	data     cbor.RawCBOR
}

// Balance returns the balance of addr as seen by this transaction,
// including moves staged earlier in the same transaction.
func (tx *Tx) Balance(addr types.Address) uint64 {
	if b, ok := tx.balances[addr]; ok {
		return b
	}
	return tx.ledger.balances[addr]
}

// Transfer stages a balance move. The sender must be able to cover the
// amount out of its staged balance.
func (tx *Tx) Transfer(from, to types.Address, amount uint64) error {
	fromBalance, ok := util.SafeSub(tx.Balance(from), amount)
	if !ok {
		return types.NewError(types.CodeInsufficientFunds,
			fmt.Sprintf("account %s cannot cover transfer of %d", from, amount))
	}
	if from == to {
		return nil
	}
	toBalance, ok := util.SafeAdd(tx.Balance(to), amount)
	if !ok {
		return fmt.Errorf("balance of account %s overflows", to)
	}
	tx.balances[from] = fromBalance
	tx.balances[to] = toBalance
	return nil
}

// Emit stages an event for the committed log. Event payloads are plain
// structs so an encoding failure is a programming error, not a runtime
// condition the caller could handle.
func (tx *Tx) Emit(contract types.Address, ev Event) {
	data, err := cbor.Marshal(ev)
	if err != nil {
		panic(fmt.Errorf("encoding %q event: %w", ev.Name(), err))
	}
	tx.events = append(tx.events, stagedEvent{
		contract: contract,
		name:     ev.Name(),
		topics:   ev.Topics(),
		data:     data,
	})
}
