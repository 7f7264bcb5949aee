/*
Package registry implements the Token Registry contract: it issues unique
token identifiers, tracks ownership and per-token metadata URIs, and
maintains the approval capabilities that let an operator (typically a
marketplace) move tokens on an owner's behalf.
*/
package registry

import (
	"fmt"

	"github.com/dappmarket-org/dappmarket-go-base/ledger"
	"github.com/dappmarket-org/dappmarket-go-base/types"
)

// Token is the registry's record of one minted token. The URI is stored
// verbatim at mint time and never changes. Approved is the single account
// with a per-token transfer capability, zero when none is set.
type Token struct {
	_        struct{}      `cbor:",toarray"`
	ID       types.TokenID `json:"id"`
	Owner    types.Address `json:"owner"`
	URI      string        `json:"uri"`
	Approved types.Address `json:"approved"`
}

type Registry struct {
	led    *ledger.Ledger
	addr   types.Address
	name   string
	symbol string

	tokens    map[types.TokenID]*Token
	operators map[types.Address]map[types.Address]bool
	count     types.TokenID
}

// New deploys a registry instance on the given ledger.
func New(led *ledger.Ledger, name, symbol string) *Registry {
	return &Registry{
		led:       led,
		addr:      led.CreateContract(),
		name:      name,
		symbol:    symbol,
		tokens:    map[types.TokenID]*Token{},
		operators: map[types.Address]map[types.Address]bool{},
	}
}

func (r *Registry) Address() types.Address { return r.addr }
func (r *Registry) Name() string           { return r.name }
func (r *Registry) Symbol() string         { return r.symbol }

// Mint assigns the next sequential token ID to the caller and stores the
// URI. Emits a Transfer from the zero address.
func (r *Registry) Mint(caller types.Address, uri string) (types.TokenID, error) {
	var id types.TokenID
	err := r.led.Execute(func(tx *ledger.Tx) error {
		id = r.count + 1
		tx.Emit(r.addr, &TransferEvent{From: types.ZeroAddress, To: caller, TokenID: id})
		r.count = id
		r.tokens[id] = &Token{ID: id, Owner: caller, URI: uri}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("minting token: %w", err)
	}
	return id, nil
}

// SetApprovalForAll grants or revokes the operator's capability to
// transfer any token the caller owns, until revoked.
func (r *Registry) SetApprovalForAll(caller, operator types.Address, approved bool) error {
	return r.led.Execute(func(tx *ledger.Tx) error {
		tx.Emit(r.addr, &ApprovalForAllEvent{Owner: caller, Operator: operator, Approved: approved})
		ops := r.operators[caller]
		if ops == nil {
			ops = map[types.Address]bool{}
			r.operators[caller] = ops
		}
		if approved {
			ops[operator] = true
		} else {
			delete(ops, operator)
		}
		return nil
	})
}

// Approve sets the single approved account of a token. The zero address
// clears the approval. Caller must be the owner or one of the owner's
// blanket-approved operators.
func (r *Registry) Approve(caller, to types.Address, id types.TokenID) error {
	return r.led.Execute(func(tx *ledger.Tx) error {
		tok, ok := r.tokens[id]
		if !ok {
			return tokenNotFound(id)
		}
		if caller != tok.Owner && !r.operators[tok.Owner][caller] {
			return types.NewError(types.CodeAuthorization,
				fmt.Sprintf("account %s is not owner of token %d nor an approved operator", caller, id))
		}
		tx.Emit(r.addr, &ApprovalEvent{Owner: tok.Owner, Approved: to, TokenID: id})
		tok.Approved = to
		return nil
	})
}

// TransferFrom reassigns token ownership from "from" to "to". The caller
// must hold a transfer capability for the token: be its owner, a
// blanket-approved operator of the owner, or the token's approved account.
func (r *Registry) TransferFrom(caller, from, to types.Address, id types.TokenID) error {
	return r.led.Execute(func(tx *ledger.Tx) error {
		return r.Transfer(tx, caller, from, to, id)
	})
}

// Transfer is the transaction-scoped transfer used when the ownership
// change must commit or roll back together with other effects of the same
// operation (eg a marketplace settlement). All validation happens before
// any state is written.
func (r *Registry) Transfer(tx *ledger.Tx, caller, from, to types.Address, id types.TokenID) error {
	tok, ok := r.tokens[id]
	if !ok {
		return tokenNotFound(id)
	}
	if tok.Owner != from {
		return types.NewError(types.CodeAuthorization,
			fmt.Sprintf("account %s is not the owner of token %d", from, id))
	}
	if caller != tok.Owner && !r.operators[tok.Owner][caller] && caller != tok.Approved {
		return types.NewError(types.CodeAuthorization,
			fmt.Sprintf("account %s is not token %d owner or approved", caller, id))
	}
	tx.Emit(r.addr, &TransferEvent{From: from, To: to, TokenID: id})
	tok.Owner = to
	tok.Approved = types.ZeroAddress
	return nil
}

// OwnerOf returns the current owner of the token.
func (r *Registry) OwnerOf(id types.TokenID) (types.Address, error) {
	var owner types.Address
	err := tokenNotFound(id)
	r.led.Read(func() {
		if tok, ok := r.tokens[id]; ok {
			owner, err = tok.Owner, nil
		}
	})
	return owner, err
}

// TokenURI returns the metadata URI stored at mint time.
func (r *Registry) TokenURI(id types.TokenID) (string, error) {
	var uri string
	err := tokenNotFound(id)
	r.led.Read(func() {
		if tok, ok := r.tokens[id]; ok {
			uri, err = tok.URI, nil
		}
	})
	return uri, err
}

// Token returns a copy of the token record.
func (r *Registry) Token(id types.TokenID) (Token, error) {
	var tok Token
	err := tokenNotFound(id)
	r.led.Read(func() {
		if t, ok := r.tokens[id]; ok {
			tok, err = *t, nil
		}
	})
	return tok, err
}

// TokenCount returns the number of tokens minted so far.
func (r *Registry) TokenCount() uint64 {
	var count uint64
	r.led.Read(func() { count = uint64(r.count) })
	return count
}

// BalanceOf returns the number of tokens the account currently owns.
func (r *Registry) BalanceOf(owner types.Address) uint64 {
	var count uint64
	r.led.Read(func() {
		for _, tok := range r.tokens {
			if tok.Owner == owner {
				count++
			}
		}
	})
	return count
}

// IsApprovedForAll reports whether operator holds the owner's blanket
// transfer capability.
func (r *Registry) IsApprovedForAll(owner, operator types.Address) bool {
	var approved bool
	r.led.Read(func() { approved = r.operators[owner][operator] })
	return approved
}

func tokenNotFound(id types.TokenID) error {
	return types.NewError(types.CodeNotFound, fmt.Sprintf("token %d has never been minted", id))
}
