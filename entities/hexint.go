package entities

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HexInt is a non-negative arbitrary-precision integer encoded as a 0x-prefixed
// hex string. Decoding tolerates leading zeros, which other balance-map tooling emits.
type HexInt big.Int

func NewHexInt(v *big.Int) *HexInt {
	if v == nil {
		return nil
	}
	return (*HexInt)(new(big.Int).Set(v))
}

func (h *HexInt) BigInt() *big.Int {
	if h == nil {
		return nil
	}
	return new(big.Int).Set((*big.Int)(h))
}

func (h HexInt) MarshalText() ([]byte, error) {
	v := big.Int(h)
	return []byte(hexutil.EncodeBig(&v)), nil
}

func (h *HexInt) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return fmt.Errorf("hex integer %q lacks 0x prefix", s)
	}
	digits := s[2:]
	if digits == "" {
		return fmt.Errorf("empty hex integer")
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid hex integer %q", s)
	}
	*h = HexInt(*v)
	return nil
}

func (h *HexInt) String() string {
	if h == nil {
		return "<nil>"
	}
	return hexutil.EncodeBig((*big.Int)(h))
}
