// Package merkle implements the fixed-depth sanctions Merkle tree from
// spec.md §4.3: a full binary tree over Poseidon-2, leaves are
// sanctioned country codes (zero for empty slots), rebuilt wholesale on
// refresh. Per the REDESIGN note in spec.md §9, the tree is stored as a
// flat arena indexed by (level, position), not as linked pointer nodes.
package merkle

import (
	"fmt"
	"math/big"

	"github.com/thesecretlab-dev/zeroid/internal/zkcrypto/poseidon"
)

// DefaultDepth is the tree depth used unless configured otherwise.
const DefaultDepth = 10

// Proof is a membership proof: sibling hashes from leaf to root and a
// bitstring of sides (0 = current node is the left child at that
// level, 1 = current node is the right child).
type Proof struct {
	Siblings []*big.Int
	Sides    []byte
}

// Tree is a fixed-depth, arena-backed Poseidon-2 Merkle tree.
type Tree struct {
	depth int
	// levels[0] holds the 2^depth leaves; levels[depth] holds the root
	// (a single element). levels[d] has 2^(depth-d) elements.
	levels  [][]*big.Int
	index   map[string]int // leaf decimal string -> leaf position
}

// Build constructs a tree of the given depth from leaves (sanctioned
// country codes as field elements). Unused slots up to 2^depth are
// zero. depth <= 0 uses DefaultDepth.
func Build(depth int, leaves []*big.Int) (*Tree, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}
	capacity := 1 << uint(depth)
	if len(leaves) > capacity {
		return nil, fmt.Errorf("merkle: %d leaves exceed capacity %d at depth %d", len(leaves), capacity, depth)
	}

	levels := make([][]*big.Int, depth+1)
	level0 := make([]*big.Int, capacity)
	index := make(map[string]int, len(leaves))
	for i := 0; i < capacity; i++ {
		if i < len(leaves) && leaves[i] != nil {
			level0[i] = new(big.Int).Set(leaves[i])
			index[level0[i].String()] = i
		} else {
			level0[i] = big.NewInt(0)
		}
	}
	levels[0] = level0

	for d := 0; d < depth; d++ {
		cur := levels[d]
		next := make([]*big.Int, len(cur)/2)
		for i := 0; i < len(next); i++ {
			h, err := poseidon.Hash2(cur[2*i], cur[2*i+1])
			if err != nil {
				return nil, fmt.Errorf("merkle: hash level %d node %d: %w", d, i, err)
			}
			next[i] = h
		}
		levels[d+1] = next
	}

	return &Tree{depth: depth, levels: levels, index: index}, nil
}

// BuildInt64 is a convenience wrapper over Build for plain int64 codes.
func BuildInt64(depth int, leaves []int64) (*Tree, error) {
	fe := make([]*big.Int, len(leaves))
	for i, v := range leaves {
		fe[i] = big.NewInt(v)
	}
	return Build(depth, fe)
}

// Depth returns the tree's configured depth.
func (t *Tree) Depth() int { return t.depth }

// Root returns the top node of the tree.
func (t *Tree) Root() *big.Int {
	return t.levels[t.depth][0]
}

// IndexOf returns the index of leaf, or -1 if it is not present.
func (t *Tree) IndexOf(leaf *big.Int) int {
	if leaf == nil {
		return -1
	}
	if i, ok := t.index[leaf.String()]; ok {
		return i
	}
	return -1
}

// GenerateProof returns the membership proof for the leaf at index i.
func (t *Tree) GenerateProof(i int) (*Proof, error) {
	if i < 0 || i >= len(t.levels[0]) {
		return nil, fmt.Errorf("merkle: index %d out of range [0,%d)", i, len(t.levels[0]))
	}

	siblings := make([]*big.Int, t.depth)
	sides := make([]byte, t.depth)
	pos := i
	for d := 0; d < t.depth; d++ {
		level := t.levels[d]
		isRight := pos%2 == 1
		var sibling *big.Int
		if isRight {
			sibling = level[pos-1]
			sides[d] = 1
		} else {
			sibling = level[pos+1]
			sides[d] = 0
		}
		siblings[d] = sibling
		pos /= 2
	}

	return &Proof{Siblings: siblings, Sides: sides}, nil
}

// VerifyProof recomputes the root from leaf and proof and compares it
// against root. It does not require the tree itself, so verifiers that
// only hold the root can check membership.
func VerifyProof(root, leaf *big.Int, proof *Proof) (bool, error) {
	if proof == nil || len(proof.Siblings) != len(proof.Sides) {
		return false, fmt.Errorf("merkle: malformed proof")
	}
	cur := new(big.Int).Set(leaf)
	for d, sibling := range proof.Siblings {
		var left, right *big.Int
		if proof.Sides[d] == 1 {
			left, right = sibling, cur
		} else {
			left, right = cur, sibling
		}
		h, err := poseidon.Hash2(left, right)
		if err != nil {
			return false, fmt.Errorf("merkle: verify level %d: %w", d, err)
		}
		cur = h
	}
	return cur.Cmp(root) == 0, nil
}
