package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/domain"
)

func TestNormalizeAddress(t *testing.T) {
	t.Parallel()

	// EIP-55 reference vector.
	const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	const lower = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

	got, err := NormalizeAddress(checksummed)
	require.NoError(t, err)
	assert.Equal(t, lower, got)

	got, err = NormalizeAddress(lower)
	require.NoError(t, err)
	assert.Equal(t, lower, got)

	got, err = NormalizeAddress("  " + lower + "  ")
	require.NoError(t, err)
	assert.Equal(t, lower, got)
}

func TestNormalizeAddressRejectsBadInput(t *testing.T) {
	t.Parallel()

	bad := []string{
		"",
		"0x123",
		"not-an-address",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeg",
		// Valid hex but wrong checksum casing.
		"0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	}
	for _, s := range bad {
		_, err := NormalizeAddress(s)
		assert.True(t, domain.IsValidation(err), "input %q", s)
	}
}

func TestChecksumAddress(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		ChecksumAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"),
	)
}
