package address

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	usdtNative = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	usdtHex    = "0xa614f803b6fd780986a42c78ec9c7f77e6ded13c"
)

func TestToInternalKnownContract(t *testing.T) {
	addr, err := ToInternal(usdtNative)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(usdtHex), addr)
	require.Equal(t, "41a614f803b6fd780986a42c78ec9c7f77e6ded13c", HexBody(addr))
}

func TestToInternalHexPayload(t *testing.T) {
	for _, input := range []string{
		"41a614f803b6fd780986a42c78ec9c7f77e6ded13c",
		"0x41A614F803B6FD780986A42C78EC9C7F77E6DED13C",
	} {
		addr, err := ToInternal(input)
		require.NoError(t, err, input)
		require.Equal(t, common.HexToAddress(usdtHex), addr)
	}
}

func TestToNativeKnownContract(t *testing.T) {
	native, err := ToNative(usdtHex)
	require.NoError(t, err)
	require.Equal(t, usdtNative, native)

	native, err = ToNative(strings.TrimPrefix(strings.ToUpper(usdtHex), "0X"))
	require.NoError(t, err)
	require.Equal(t, usdtNative, native)
}

func TestZeroAddress(t *testing.T) {
	require.Equal(t, "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb", FromAddress(common.Address{}))
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		var raw common.Address
		rng.Read(raw[:])

		native := FromAddress(raw)
		require.True(t, strings.HasPrefix(native, "T"), native)

		internal, err := ToInternal(native)
		require.NoError(t, err)
		require.Equal(t, raw, internal)

		back, err := ToNative(internal.Hex())
		require.NoError(t, err)
		require.Equal(t, native, back)
	}
}

func TestToInternalRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"bad checksum":  "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u",
		"bad alphabet":  "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj60",
		"too short":     "TR7NHqjeKQxGTCi8q8ZY4pL8",
		"wrong version": "42a614f803b6fd780986a42c78ec9c7f77e6ded13c",
	}
	for name, input := range cases {
		_, err := ToInternal(input)
		var invalid *InvalidAddressError
		require.True(t, errors.As(err, &invalid), "%s: %v", name, err)
	}
}

func TestToNativeRejectsWrongLength(t *testing.T) {
	for _, input := range []string{"0x", "0x1234", usdtHex + "00", "0xzz14f803b6fd780986a42c78ec9c7f77e6ded13c"} {
		_, err := ToNative(input)
		var invalid *InvalidAddressError
		require.True(t, errors.As(err, &invalid), "%s: %v", input, err)
	}
}
