package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"firestige.xyz/trpt/pkg/trpt"
)

// parseHex decodes a report given as hex. Whitespace, colons and a leading
// 0x are ignored so dumps can be pasted as-is.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, fmt.Errorf("empty hex input")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return b, nil
}

// decodeHex parses and decodes a hex report.
func decodeHex(s string) (*trpt.Report, error) {
	b, err := parseHex(s)
	if err != nil {
		return nil, err
	}
	r, err := trpt.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
