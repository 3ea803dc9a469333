package entities

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// AllocationEntry is one requested (address, amount) pair. Amount is the
// human-denominated decimal before scaling.
type AllocationEntry struct {
	Address common.Address
	Amount  decimal.Decimal
}

type allocationEntryJSON struct {
	Address AddressString   `json:"address"`
	Amount  json.RawMessage `json:"amount"`
}

func (e *AllocationEntry) UnmarshalJSON(data []byte) error {
	var raw allocationEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	addr, err := raw.Address.Parse()
	if err != nil {
		return err
	}
	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return fmt.Errorf("allocation %s: %w", addr.Hex(), err)
	}
	e.Address, e.Amount = addr, amount
	return nil
}

func (e AllocationEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Address AddressString `json:"address"`
		Amount  string        `json:"amount"`
	}{ChecksumString(e.Address), e.Amount.String()})
}

// parseAmount accepts a JSON number or a decimal string; both keep full precision.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return decimal.Decimal{}, fmt.Errorf("amount is required")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Decimal{}, fmt.Errorf("malformed amount %s: %w", string(raw), err)
	}
	return d, nil
}

// AllocationList is the ordered allocation batch. On the wire it is either an
// array of {"address","amount"} objects or an object mapping address to amount;
// for the object form the key order of the document is kept, because the order
// decides each entry's index.
type AllocationList []AllocationEntry

func (l *AllocationList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty allocation list")
	}
	switch trimmed[0] {
	case '[':
		var entries []AllocationEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		*l = entries
		return nil
	case '{':
		entries, err := decodeOrderedObject(trimmed)
		if err != nil {
			return err
		}
		*l = entries
		return nil
	default:
		return fmt.Errorf("allocations must be an array or an object")
	}
}

func decodeOrderedObject(data []byte) ([]AllocationEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	entries := []AllocationEntry{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		addr, err := ParseAddress(key)
		if err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("allocation %s: %w", addr.Hex(), err)
		}
		entries = append(entries, AllocationEntry{Address: addr, Amount: amount})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
