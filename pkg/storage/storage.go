package storage

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/multiformats/go-multibase"
	mh "github.com/multiformats/go-multihash"
)

// Reference is the content address of a published document.
type Reference struct {
	cid.Cid
}

// ParseReference validates the syntax of a content address without any I/O.
// Both CIDv0 (base58 "Qm…") and multibase CIDv1 strings are accepted.
func ParseReference(s string) (Reference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Reference{}, apperror.Reference("empty content reference", nil)
	}
	c, err := cid.Decode(s)
	if err != nil {
		return Reference{}, apperror.Reference(fmt.Sprintf("invalid content reference %q", s), err)
	}
	return Reference{Cid: c}, nil
}

func IsValidReference(s string) bool {
	_, err := ParseReference(s)
	return err == nil
}

// NewReference computes the CIDv1 of data under the given codec with sha2-256.
func NewReference(codec uint64, data []byte) (Reference, error) {
	prefix := cid.Prefix{Version: 1, Codec: codec, MhType: mh.SHA2_256, MhLength: -1}
	c, err := prefix.Sum(data)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Cid: c}, nil
}

// Key is the normal form of the reference: CIDv1 in base32. CIDv0 and CIDv1
// renderings of the same content share a Key.
func (r Reference) Key() string {
	return cid.NewCidV1(r.Type(), r.Hash()).String()
}

func (r Reference) Equivalent(o Reference) bool {
	return r.Defined() && o.Defined() && r.Type() == o.Type() && string(r.Hash()) == string(o.Hash())
}

// V0 renders the base58 CIDv0 form. Only dag-pb sha2-256 content has one.
func (r Reference) V0() (string, bool) {
	if r.Type() != cid.DagProtobuf {
		return "", false
	}
	decoded, err := mh.Decode(r.Hash())
	if err != nil || decoded.Code != mh.SHA2_256 || decoded.Length != 32 {
		return "", false
	}
	return cid.NewCidV0(r.Hash()).String(), true
}

// Encode renders the CIDv1 form in the given multibase (base32 and base58btc are
// the encodings pinning services hand out).
func (r Reference) Encode(base multibase.Encoding) (string, error) {
	enc, err := multibase.NewEncoder(base)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(r.Type(), r.Hash()).Encode(enc), nil
}

// Encodings lists every supported rendering of r, the original string first.
func (r Reference) Encodings() []string {
	out := []string{r.String()}
	add := func(s string) {
		for _, existing := range out {
			if existing == s {
				return
			}
		}
		out = append(out, s)
	}
	if v0, ok := r.V0(); ok {
		add(v0)
	}
	add(r.Key())
	if b58, err := r.Encode(multibase.Base58BTC); err == nil {
		add(b58)
	}
	return out
}

// Store is the content-addressed storage collaborator.
type Store interface {
	Publish(ctx context.Context, data []byte) (Reference, error)
	Fetch(ctx context.Context, ref Reference) ([]byte, error)
	// ListPinned yields the references of every pinned document. Each call starts
	// a fresh enumeration.
	ListPinned(ctx context.Context) iter.Seq2[Reference, error]
}

// Unpinner is implemented by stores whose pins the operator may drop.
type Unpinner interface {
	Unpin(ctx context.Context, ref Reference) error
}
