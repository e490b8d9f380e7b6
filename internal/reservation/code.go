package reservation

import (
	"crypto/rand"
	"errors"
)

// Confirmation codes skip 0/O and 1/I/L so they survive being read over the phone.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 8

// ErrCodeTaken is returned by Store.Create when the generated confirmation code collides.
var ErrCodeTaken = errors.New("reservation code already taken")

func NewCode() string {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}

func NormalizeCode(code string) string {
	out := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-'a'+'A')
		case c == ' ' || c == '-':
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
