package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"transferScope/internal/address"
)

func runAddress(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, arg := range args {
		line, err := convertAddress(arg)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// convertAddress prints the base58, 0x and 41-prefixed encodings of an address given in any of them.
func convertAddress(input string) (string, error) {
	input = strings.TrimSpace(input)
	addr, err := address.ToInternal(input)
	if err != nil {
		native, nerr := address.ToNative(input)
		if nerr != nil {
			return "", err
		}
		if addr, err = address.ToInternal(native); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s\t%s\t%s", address.FromAddress(addr), addr.Hex(), address.HexBody(addr)), nil
}
