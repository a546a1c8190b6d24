// Package sanctions owns the lifecycle of the sanctions Merkle tree
// (spec.md §4.3, §4.9): built once at boot from the restricted-country
// list, refreshed atomically, and queried on the credential issuance
// path ("isCountrySanctioned", spec.md §4.5 step 2).
package sanctions

import (
	"errors"
	"math/big"
	"sync/atomic"

	"github.com/thesecretlab-dev/zeroid/internal/merkle"
)

// ErrNotSanctioned is returned by Proof when the requested country
// code is not present in the current tree.
var ErrNotSanctioned = errors.New("sanctions: country code not in current tree")

// Screener answers sanctions-list membership queries against an
// atomically-swappable Merkle tree, matching spec.md §5's "Sanctions
// Merkle tree: built once at boot; refresh atomically replaces the
// tree pointer" requirement.
type Screener struct {
	tree atomic.Pointer[merkle.Tree]
}

// NewScreener builds a Screener from the initial list of sanctioned
// ISO 3166-1 numeric country codes.
func NewScreener(depth int, countryCodes []int64) (*Screener, error) {
	s := &Screener{}
	if err := s.Refresh(depth, countryCodes); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh rebuilds the tree from scratch and atomically swaps it in;
// in-flight queries against the old tree are unaffected.
func (s *Screener) Refresh(depth int, countryCodes []int64) error {
	tree, err := merkle.BuildInt64(depth, countryCodes)
	if err != nil {
		return err
	}
	s.tree.Store(tree)
	return nil
}

// IsSanctioned reports whether countryCode appears in the current tree.
func (s *Screener) IsSanctioned(countryCode int64) bool {
	return s.IndexOf(countryCode) >= 0
}

// IndexOf returns the leaf index of countryCode in the current tree,
// or -1 if absent.
func (s *Screener) IndexOf(countryCode int64) int {
	tree := s.tree.Load()
	if tree == nil {
		return -1
	}
	return tree.IndexOf(big.NewInt(countryCode))
}

// Root returns the current tree's root, for clients that want to prove
// membership/non-membership against a pinned root.
func (s *Screener) Root() *big.Int {
	tree := s.tree.Load()
	if tree == nil {
		return nil
	}
	return tree.Root()
}

// Proof returns a membership proof for countryCode at its current leaf
// index, alongside that index.
func (s *Screener) Proof(countryCode int64) (*merkle.Proof, int, error) {
	tree := s.tree.Load()
	idx := tree.IndexOf(big.NewInt(countryCode))
	if idx < 0 {
		return nil, -1, ErrNotSanctioned
	}
	proof, err := tree.GenerateProof(idx)
	return proof, idx, err
}
