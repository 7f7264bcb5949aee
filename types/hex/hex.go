// Package hex provides 0x-prefixed hexadecimal encoding for byte slices.
package hex

import (
	"encoding/hex"
	"fmt"
)

// Bytes is a byte slice that marshals to and from 0x-prefixed hex.
type Bytes []byte

func Encode(src []byte) []byte {
	dst := make([]byte, 2+hex.EncodedLen(len(src)))
	copy(dst, "0x")
	hex.Encode(dst[2:], src)
	return dst
}

func Decode(src []byte) ([]byte, error) {
	if len(src) >= 2 && (string(src[:2]) == "0x" || string(src[:2]) == "0X") {
		src = src[2:]
	}
	dst := make([]byte, hex.DecodedLen(len(src)))
	if _, err := hex.Decode(dst, src); err != nil {
		return nil, fmt.Errorf("decoding hex string: %w", err)
	}
	return dst, nil
}

func (b Bytes) MarshalText() ([]byte, error) {
	return Encode(b), nil
}

func (b *Bytes) UnmarshalText(src []byte) error {
	res, err := Decode(src)
	if err == nil {
		*b = res
	}
	return err
}
