package entities

import (
	"strings"

	domainerrors "ballotbox/contexts/governance/ballot-engine/domain/errors"

	"github.com/ethereum/go-ethereum/common"
)

// Address is a 20-byte account identity. Values obtained from ParseAddress
// are never the zero address; the zero value of the type is the zero address
// and is rejected wherever a real identity is required.
type Address struct {
	raw common.Address
}

// ParseAddress accepts a 0x-prefixed (or bare) 40 hex digit string.
func ParseAddress(value string) (Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return Address{}, domainerrors.ErrInvalidAddress
	}
	addr := Address{raw: common.HexToAddress(value)}
	if addr.IsZero() {
		return Address{}, domainerrors.ErrInvalidAddress
	}
	return addr, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(value string) Address {
	addr, err := ParseAddress(value)
	if err != nil {
		panic("entities: invalid address " + value)
	}
	return addr
}

func (a Address) IsZero() bool {
	return a.raw == (common.Address{})
}

// String returns the EIP-55 checksummed hex form.
func (a Address) String() string {
	return a.raw.Hex()
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
