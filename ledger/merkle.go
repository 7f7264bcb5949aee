package ledger

import (
	"crypto"

	"github.com/dappmarket-org/dappmarket-go-base/hash"
	"github.com/dappmarket-org/dappmarket-go-base/types/hex"
)

// PathItem is one step of a Merkle inclusion proof. DirectionLeft is true
// when the hash being verified is the left operand of the step.
type PathItem struct {
	_             struct{}  `cbor:",toarray"`
	Hash          hex.Bytes `json:"hash"`
	DirectionLeft bool      `json:"directionLeft"`
}

// merkleRoot computes the root of a binary hash tree over the leaves.
// A single-leaf tree's root is the leaf itself. Trees with more leaves
// split at the largest power of two smaller than the leaf count.
func merkleRoot(hashAlgorithm crypto.Hash, leaves [][]byte) []byte {
	switch n := len(leaves); n {
	case 0:
		return nil
	case 1:
		return leaves[0]
	default:
		m := hibit(n - 1)
		return hash.SumHashes(hashAlgorithm, merkleRoot(hashAlgorithm, leaves[:m]), merkleRoot(hashAlgorithm, leaves[m:]))
	}
}

// merklePath returns the inclusion proof of leaves[idx], nil for a
// single-leaf tree. idx must be within bounds.
func merklePath(hashAlgorithm crypto.Hash, leaves [][]byte, idx int) []*PathItem {
	if len(leaves) < 2 {
		return nil
	}
	m := hibit(len(leaves) - 1)
	if idx < m {
		path := merklePath(hashAlgorithm, leaves[:m], idx)
		return append(path, &PathItem{Hash: merkleRoot(hashAlgorithm, leaves[m:]), DirectionLeft: true})
	}
	path := merklePath(hashAlgorithm, leaves[m:], idx-m)
	return append(path, &PathItem{Hash: merkleRoot(hashAlgorithm, leaves[:m]), DirectionLeft: false})
}

// EvalMerklePath computes the root hash from a leaf hash and its
// inclusion proof; comparing the result to the known root verifies the
// leaf's membership.
func EvalMerklePath(hashAlgorithm crypto.Hash, leaf []byte, path []*PathItem) []byte {
	res := leaf
	for _, item := range path {
		if item.DirectionLeft {
			res = hash.SumHashes(hashAlgorithm, res, item.Hash)
		} else {
			res = hash.SumHashes(hashAlgorithm, item.Hash, res)
		}
	}
	return res
}

// hibit returns the highest power of two <= n (0 for n == 0).
func hibit(n int) int {
	if n < 0 {
		panic("hibit function input cannot be negative")
	}
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n - (n >> 1)
}
