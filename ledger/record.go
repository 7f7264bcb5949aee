package ledger

import (
	"crypto"

	"github.com/dappmarket-org/dappmarket-go-base/cbor"
	"github.com/dappmarket-org/dappmarket-go-base/hash"
	"github.com/dappmarket-org/dappmarket-go-base/types"
	"github.com/dappmarket-org/dappmarket-go-base/types/hex"
)

// Event is a notification emitted by a contract during a transaction.
// Topics list the accounts the event is about, they are indexed so that
// past activity can be enumerated per account.
type Event interface {
	Name() string
	Topics() []types.Address
}

// Record is a committed event. Records form an append-only log, each
// record is hash-chained to the previous one.
type Record struct {
	_        struct{}        `cbor:",toarray"`
	Seq      uint64          `json:"seq"`
	Contract types.Address   `json:"contract"`
	Name     string          `json:"name"`
	Topics   []types.Address `json:"topics"`
	Data     cbor.RawCBOR    `json:"data"`
	PrevHash hex.Bytes       `json:"prevHash"`
	Hash     hex.Bytes       `json:"hash"`
}

// Decode unmarshals the event payload into v, which must be a pointer to
// the payload type matching the record's Name.
func (r *Record) Decode(v any) error {
	return cbor.Unmarshal(r.Data, v)
}

// computeHash hashes all record fields except Hash itself.
func (r *Record) computeHash() []byte {
	return hash.Sum(crypto.SHA256, r.Seq, r.Contract, r.Name, r.Topics, r.Data, r.PrevHash)
}

// Matcher selects records when querying the committed log.
type Matcher func(*Record) bool

// ByName matches records of the named event type.
func ByName(name string) Matcher {
	return func(r *Record) bool { return r.Name == name }
}

// ByContract matches records emitted by the given contract instance.
func ByContract(addr types.Address) Matcher {
	return func(r *Record) bool { return r.Contract == addr }
}

// ByTopic matches records that reference the given account in any topic.
func ByTopic(addr types.Address) Matcher {
	return func(r *Record) bool {
		for _, topic := range r.Topics {
			if topic == addr {
				return true
			}
		}
		return false
	}
}
