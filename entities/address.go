package entities

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddressString is an account address as it appears on the wire (any case, with or
// without 0x). Use Parse to obtain the canonical 20-byte value.
type AddressString string

func (a AddressString) Parse() (common.Address, error) {
	return ParseAddress(string(a))
}

func (a AddressString) IsValid() bool {
	_, err := ParseAddress(string(a))
	return err == nil
}

// ParseAddress accepts all-lower or all-upper hex; mixed case must be a valid
// EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	raw := s
	if len(raw) >= 2 && (raw[:2] == "0x" || raw[:2] == "0X") {
		raw = raw[2:]
	}
	if raw != strings.ToLower(raw) && raw != strings.ToUpper(raw) && raw != addr.Hex()[2:] {
		return common.Address{}, fmt.Errorf("address %q has an invalid checksum", s)
	}
	return addr, nil
}

// ChecksumString renders addr in EIP-55 form, the canonical key of published documents.
func ChecksumString(addr common.Address) AddressString {
	return AddressString(addr.Hex())
}
