package crypto

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

var (
	ErrAddressFormat   = errors.New("address must be 0x followed by 40 hex characters")
	ErrAddressChecksum = errors.New("address checksum mismatch")
)

// EIP55 computes the checksummed hex string of a 20-byte address.
func EIP55(addr20 []byte) string {
	hexaddr := hex.EncodeToString(addr20)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(hexaddr))
	hash := h.Sum(nil)

	out := make([]byte, 2+len(hexaddr))
	copy(out, "0x")
	for i, c := range []byte(hexaddr) {
		if c >= '0' && c <= '9' {
			out[2+i] = c
			continue
		}
		nibble := hash[i>>1]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out[2+i] = c
	}
	return string(out)
}

// ParseAddress parses a user-supplied hex address. All-lowercase and
// all-uppercase forms are accepted as is; mixed case must carry a valid
// EIP-55 checksum.
func ParseAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, ErrAddressFormat
	}
	body := s[2:]
	if len(body) != 40 {
		return common.Address{}, ErrAddressFormat
	}
	raw, err := hex.DecodeString(body)
	if err != nil {
		return common.Address{}, ErrAddressFormat
	}

	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if EIP55(raw)[2:] != body {
			return common.Address{}, ErrAddressChecksum
		}
	}
	return common.BytesToAddress(raw), nil
}
