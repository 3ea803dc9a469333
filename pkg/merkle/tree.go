package merkle

import (
	"bytes"
	"errors"
	"runtime"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyTree = errors.New("merkle: cannot build a tree without leaves")

// parallelThreshold is the number of pairs in a level above which the level is
// hashed by several goroutines.
const parallelThreshold = 4096

type Proof []common.Hash

func (p Proof) Hex() []string {
	out := make([]string, len(p))
	for i, h := range p {
		out[i] = h.Hex()
	}
	return out
}

// Combine hashes two nodes in ascending byte order, so a verifier only needs the
// sibling value and never its side.
func Combine(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return crypto.Keccak256Hash(a[:], b[:])
	}
	return crypto.Keccak256Hash(b[:], a[:])
}

type Tree struct {
	leaves []common.Hash
	root   common.Hash
	proofs []Proof
}

// Build constructs the tree bottom-up. Adjacent nodes are paired left to right;
// an odd trailing node is promoted unchanged and gets no proof entry for that level.
func Build(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}
	t := &Tree{
		leaves: append([]common.Hash(nil), leaves...),
		proofs: make([]Proof, len(leaves)),
	}
	// members[i] lists the original leaves under node i of the current level.
	level := append([]common.Hash(nil), leaves...)
	members := make([][]int, len(leaves))
	for i := range members {
		members[i] = []int{i}
	}
	for len(level) > 1 {
		pairs := len(level) / 2
		next := make([]common.Hash, (len(level)+1)/2)
		nextMembers := make([][]int, len(next))

		hashLevel(level, next[:pairs])
		for p := 0; p < pairs; p++ {
			left, right := 2*p, 2*p+1
			for _, leaf := range members[left] {
				t.proofs[leaf] = append(t.proofs[leaf], level[right])
			}
			for _, leaf := range members[right] {
				t.proofs[leaf] = append(t.proofs[leaf], level[left])
			}
			nextMembers[p] = append(members[left], members[right]...)
		}
		if len(level)%2 == 1 {
			next[pairs] = level[len(level)-1]
			nextMembers[pairs] = members[len(level)-1]
		}
		level, members = next, nextMembers
	}
	t.root = level[0]
	return t, nil
}

// hashLevel fills out[p] = Combine(level[2p], level[2p+1]).
func hashLevel(level []common.Hash, out []common.Hash) {
	if len(out) < parallelThreshold {
		for p := range out {
			out[p] = Combine(level[2*p], level[2*p+1])
		}
		return
	}
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(out) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(out); start += chunk {
		start, end := start, min(start+chunk, len(out))
		g.Go(func() error {
			for p := start; p < end; p++ {
				out[p] = Combine(level[2*p], level[2*p+1])
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (t *Tree) Root() common.Hash {
	return t.root
}

func (t *Tree) Len() int {
	return len(t.leaves)
}

func (t *Tree) Leaf(i int) common.Hash {
	return t.leaves[i]
}

// Proof returns a copy of the sibling path of leaf i.
func (t *Tree) Proof(i int) Proof {
	return append(Proof{}, t.proofs[i]...)
}

func (t *Tree) Proofs() []Proof {
	out := make([]Proof, len(t.proofs))
	for i := range t.proofs {
		out[i] = t.Proof(i)
	}
	return out
}
