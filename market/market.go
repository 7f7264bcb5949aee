/*
Package market implements the Marketplace contract. It lists tokens for a
fixed price, escrows their custody while listed, and settles purchases by
paying the seller, paying the fee account and handing custody to the
buyer as one atomic operation.

An item moves through exactly one transition, Listed -> Sold; there is no
delisting. Sold items remain queryable as history.
*/
package market

import (
	"fmt"

	"github.com/dappmarket-org/dappmarket-go-base/ledger"
	"github.com/dappmarket-org/dappmarket-go-base/types"
	"github.com/dappmarket-org/dappmarket-go-base/util"
)

// TokenMover is the slice of the Token Registry contract the marketplace
// needs: custody transfers that commit or roll back with the rest of the
// settlement. Any registry instance satisfying it can be listed against.
type TokenMover interface {
	Address() types.Address
	Transfer(tx *ledger.Tx, caller, from, to types.Address, id types.TokenID) error
}

// Item is one listing. Price is in the smallest currency unit and is
// positive for the lifetime of the item. Sold flips to true exactly once.
type Item struct {
	_        struct{}      `cbor:",toarray"`
	ID       types.ItemID  `json:"itemId"`
	Registry types.Address `json:"registry"`
	TokenID  types.TokenID `json:"tokenId"`
	Price    uint64        `json:"price"`
	Seller   types.Address `json:"seller"`
	Sold     bool          `json:"sold"`
}

type Marketplace struct {
	led        *ledger.Ledger
	addr       types.Address
	feeAccount types.Address
	feePercent uint64

	items  map[types.ItemID]*Item
	movers map[types.ItemID]TokenMover
	count  types.ItemID
}

type Option func(*options)

type options struct {
	initialBalance uint64
}

// WithInitialBalance endows the marketplace account with the given amount
// out of the deployer's balance.
func WithInitialBalance(amount uint64) Option {
	return func(o *options) { o.initialBalance = amount }
}

// New deploys a marketplace instance. The deployer becomes the permanent
// fee account; the fee percent cannot be changed after deployment.
func New(led *ledger.Ledger, deployer types.Address, feePercent uint64, opts ...Option) (*Marketplace, error) {
	var opt options
	for _, o := range opts {
		o(&opt)
	}
	m := &Marketplace{
		led:        led,
		addr:       led.CreateContract(),
		feeAccount: deployer,
		feePercent: feePercent,
		items:      map[types.ItemID]*Item{},
		movers:     map[types.ItemID]TokenMover{},
	}
	if opt.initialBalance > 0 {
		err := led.Execute(func(tx *ledger.Tx) error {
			return tx.Transfer(deployer, m.addr, opt.initialBalance)
		})
		if err != nil {
			return nil, fmt.Errorf("endowing marketplace account: %w", err)
		}
	}
	return m, nil
}

func (m *Marketplace) Address() types.Address    { return m.addr }
func (m *Marketplace) FeeAccount() types.Address { return m.feeAccount }
func (m *Marketplace) FeePercent() uint64        { return m.feePercent }

// MakeItem lists a token for sale. The marketplace pulls custody of the
// token from the caller, which requires the caller to have granted it
// blanket approval in the registry beforehand.
func (m *Marketplace) MakeItem(caller types.Address, nft TokenMover, tokenID types.TokenID, price uint64) (types.ItemID, error) {
	var id types.ItemID
	err := m.led.Execute(func(tx *ledger.Tx) error {
		if price == 0 {
			return types.NewError(types.CodeInvalidArgument, "Price must be greater than zero")
		}
		if err := nft.Transfer(tx, m.addr, caller, m.addr, tokenID); err != nil {
			return fmt.Errorf("taking custody of token %d: %w", tokenID, err)
		}
		id = m.count + 1
		tx.Emit(m.addr, &OfferedEvent{
			ItemID:   id,
			Registry: nft.Address(),
			TokenID:  tokenID,
			Price:    price,
			Seller:   caller,
		})
		m.count = id
		m.items[id] = &Item{
			ID:       id,
			Registry: nft.Address(),
			TokenID:  tokenID,
			Price:    price,
			Seller:   caller,
		}
		m.movers[id] = nft
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetTotalPrice returns the exact amount a buyer must remit for the item:
// the listing price plus the marketplace fee, with the fee truncated to
// an integer.
func (m *Marketplace) GetTotalPrice(id types.ItemID) (uint64, error) {
	var total uint64
	var err error
	m.led.Read(func() {
		if id == 0 || id > m.count {
			err = itemNotFound()
			return
		}
		total, err = m.totalPrice(m.items[id].Price)
	})
	return total, err
}

// PurchaseItem settles a purchase: the buyer remits payment to the
// marketplace, the seller receives the listing price, the fee account
// receives the fee, custody moves to the buyer and the item is marked
// sold. Either all of it applies or none of it does. Overpayment above
// the total price is retained by the marketplace account, no refund is
// issued.
func (m *Marketplace) PurchaseItem(buyer types.Address, id types.ItemID, payment uint64) error {
	return m.led.Execute(func(tx *ledger.Tx) error {
		if id == 0 || id > m.count {
			return itemNotFound()
		}
		it := m.items[id]
		total, err := m.totalPrice(it.Price)
		if err != nil {
			return err
		}
		if payment < total {
			return types.NewError(types.CodeInsufficientFunds, "Not enough ether to cover item price and market fee")
		}
		if it.Sold {
			return types.NewError(types.CodeAlreadySold, "Item already sold")
		}
		if err := tx.Transfer(buyer, m.addr, payment); err != nil {
			return err
		}
		if err := tx.Transfer(m.addr, it.Seller, it.Price); err != nil {
			return err
		}
		if err := tx.Transfer(m.addr, m.feeAccount, total-it.Price); err != nil {
			return err
		}
		if err := m.movers[id].Transfer(tx, m.addr, m.addr, buyer, it.TokenID); err != nil {
			return fmt.Errorf("transferring token custody: %w", err)
		}
		tx.Emit(m.addr, &BoughtEvent{
			ItemID:   id,
			Registry: it.Registry,
			TokenID:  it.TokenID,
			Price:    it.Price,
			Seller:   it.Seller,
			Buyer:    buyer,
		})
		it.Sold = true
		return nil
	})
}

// Item returns a copy of the listing record.
func (m *Marketplace) Item(id types.ItemID) (Item, error) {
	var item Item
	err := itemNotFound()
	m.led.Read(func() {
		if it, ok := m.items[id]; ok {
			item, err = *it, nil
		}
	})
	return item, err
}

// ItemCount returns the number of items ever listed, sold ones included.
func (m *Marketplace) ItemCount() uint64 {
	var count uint64
	m.led.Read(func() { count = uint64(m.count) })
	return count
}

// totalPrice computes price*(100+feePercent)/100 with integer truncation.
func (m *Marketplace) totalPrice(price uint64) (uint64, error) {
	pct, ok := util.SafeAdd(100, m.feePercent)
	if !ok {
		return 0, fmt.Errorf("fee percent %d overflows", m.feePercent)
	}
	gross, ok := util.SafeMul(price, pct)
	if !ok {
		return 0, fmt.Errorf("total price of %d with %d%% fee overflows", price, m.feePercent)
	}
	return gross / 100, nil
}

func itemNotFound() error {
	return types.NewError(types.CodeNotFound, "Item doesn't exist")
}
