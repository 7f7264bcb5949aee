/*
Package ledger provides the execution environment the contract instances
run on: funded accounts, serial execution of mutating operations with
all-or-nothing commit, and an append-only hash-chained log of emitted
events.

All state-mutating operations execute under one write lock, so a single
operation never observes in-flight changes of another. Reads take a read
lock and always see the state as of the last committed operation.
*/
package ledger

import (
	"crypto"
	"fmt"
	"sync"

	"github.com/dappmarket-org/dappmarket-go-base/hash"
	"github.com/dappmarket-org/dappmarket-go-base/types"
	"github.com/dappmarket-org/dappmarket-go-base/types/hex"
)

type Ledger struct {
	mu        sync.RWMutex
	balances  map[types.Address]uint64
	records   []Record
	head      []byte
	contracts uint64
	onCommit  []func([]Record)
}

func New() *Ledger {
	return &Ledger{
		balances: map[types.Address]uint64{},
		head:     hash.Zero256,
	}
}

// OnCommit registers an observer invoked with the records committed by
// each successful operation, in commit order. Observers run while the
// operation still holds the write lock so they see records in the exact
// order they were committed.
func (l *Ledger) OnCommit(fn func([]Record)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onCommit = append(l.onCommit, fn)
}

// CreateAccount funds a fresh externally owned account. The key pair
// behind the address is managed by the caller.
func (l *Ledger) CreateAccount(addr types.Address, balance uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[addr]; ok {
		return fmt.Errorf("account %s already exists", addr)
	}
	l.balances[addr] = balance
	return nil
}

// CreateContract allocates a ledger account for a contract instance and
// returns its address. Contract addresses are derived from a per-ledger
// deployment counter.
func (l *Ledger) CreateContract() types.Address {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contracts++
	var counter [8]byte
	for i, shift := 0, 56; i < 8; i, shift = i+1, shift-8 {
		counter[i] = byte(l.contracts >> shift)
	}
	addr := types.Address(hash.Sum256(append([]byte("contract/"), counter[:]...))[12:32])
	if _, ok := l.balances[addr]; !ok {
		l.balances[addr] = 0
	}
	return addr
}

func (l *Ledger) BalanceOf(addr types.Address) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr]
}

// Execute runs fn as one atomic operation. If fn returns an error nothing
// is applied; otherwise the staged balance moves and events commit as a
// unit before the next operation may start.
func (l *Ledger) Execute(fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx := &Tx{ledger: l, balances: map[types.Address]uint64{}}
	if err := fn(tx); err != nil {
		return err
	}
	l.commit(tx)
	return nil
}

// Read runs fn under the read lock so composite queries over contract
// state observe one consistent snapshot.
func (l *Ledger) Read(fn func()) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn()
}

func (l *Ledger) commit(tx *Tx) {
	for addr, balance := range tx.balances {
		l.balances[addr] = balance
	}
	if len(tx.events) == 0 {
		return
	}
	committed := make([]Record, 0, len(tx.events))
	for _, ev := range tx.events {
		rec := Record{
			Seq:      uint64(len(l.records)) + 1,
			Contract: ev.contract,
			Name:     ev.name,
			Topics:   ev.topics,
			Data:     ev.data,
			PrevHash: hex.Bytes(l.head),
		}
		rec.Hash = rec.computeHash()
		l.records = append(l.records, rec)
		l.head = rec.Hash
		committed = append(committed, rec)
	}
	for _, fn := range l.onCommit {
		fn(committed)
	}
}

// Records returns the committed records matching every given matcher,
// in commit order.
func (l *Ledger) Records(matchers ...Matcher) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var res []Record
	for i := range l.records {
		if matchesAll(&l.records[i], matchers) {
			res = append(res, l.records[i])
		}
	}
	return res
}

func matchesAll(r *Record, matchers []Matcher) bool {
	for _, m := range matchers {
		if !m(r) {
			return false
		}
	}
	return true
}

func (l *Ledger) RecordCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.records))
}

// Head returns the hash of the latest committed record, or the zero hash
// for an empty log.
func (l *Ledger) Head() hex.Bytes {
	l.mu.RLock()
	defer l.mu.RUnlock()
	head := make([]byte, len(l.head))
	copy(head, l.head)
	return head
}

// RootHash computes the Merkle root over the hashes of all committed
// records, nil for an empty log.
func (l *Ledger) RootHash() []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return merkleRoot(crypto.SHA256, l.recordHashes())
}

// InclusionProof returns the Merkle path proving that the record with the
// given sequence number is part of the log summarized by RootHash.
func (l *Ledger) InclusionProof(seq uint64) ([]*PathItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq == 0 || seq > uint64(len(l.records)) {
		return nil, fmt.Errorf("no record with sequence number %d", seq)
	}
	return merklePath(crypto.SHA256, l.recordHashes(), int(seq-1)), nil
}

func (l *Ledger) recordHashes() [][]byte {
	hashes := make([][]byte, len(l.records))
	for i := range l.records {
		hashes[i] = l.records[i].Hash
	}
	return hashes
}
