package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestConvertAddress(t *testing.T) {
	want := "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t\t0xa614f803b6fd780986a42C78Ec9c7f77e6DeD13C\t41a614f803b6fd780986a42c78ec9c7f77e6ded13c"

	got, err := convertAddress("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t")
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(want), strings.ToLower(got))

	got, err = convertAddress("0xa614f803b6fd780986a42c78ec9c7f77e6ded13c")
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(want), strings.ToLower(got))

	_, err = convertAddress("0x1234")
	require.Error(t, err)
}

func TestRunAddressWritesOneLinePerArg(t *testing.T) {
	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	require.NoError(t, runAddress(cmd, []string{
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
		"T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb",
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb\t0x0000000000000000000000000000000000000000"))
}

func TestConvertAddressTronHex(t *testing.T) {
	got, err := convertAddress("41a614f803b6fd780986a42c78ec9c7f77e6ded13c")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(got, "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t\t"))
}
