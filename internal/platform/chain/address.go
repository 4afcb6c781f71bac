// Package chain validates and normalizes the wallet addresses players
// identify with. Addresses are stored lowercase; the EIP-55 checksum form is
// for display only.
package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// NormalizeAddress validates a hex wallet address and returns its lowercase
// storage form. Mixed-case input must carry a valid EIP-55 checksum;
// all-lower and all-upper forms are accepted without one.
func NormalizeAddress(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !common.IsHexAddress(s) {
		return "", domain.ValidationError{Field: "address", Reason: "must be a 20-byte hex address"}
	}

	hexPart := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) {
		if common.HexToAddress(s).Hex() != "0x"+hexPart {
			return "", domain.ValidationError{Field: "address", Reason: "checksum mismatch"}
		}
	}

	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}

// ChecksumAddress returns the EIP-55 display form of a stored address.
func ChecksumAddress(stored string) string {
	return common.HexToAddress(stored).Hex()
}
