package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountAddress(t *testing.T) {
	// well-known test key (hardhat account #0)
	const key = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	_, addr, err := AccountAddress(key)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", addr)

	_, addr2, err := AccountAddress(key[2:])
	require.NoError(t, err)
	assert.Equal(t, addr, addr2)

	_, _, err = AccountAddress("not-a-key")
	assert.Error(t, err)
}
