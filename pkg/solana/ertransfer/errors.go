package ertransfer

import (
	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// Anchor numbers program errors from 6000.
const customErrorOffset = 6000

const (
	ErrorCodeInsufficientBalance solana.CustomError = customErrorOffset + iota
)

var ErrInsufficientBalance = errors.New("Insufficient balance for transfer")

var errorsByCode = map[solana.CustomError]error{
	ErrorCodeInsufficientBalance: ErrInsufficientBalance,
}

// ParseError maps a transaction or instruction failure carrying an
// er_transfer custom error code to the matching sentinel. Any other error is
// returned unchanged.
func ParseError(err error) error {
	if err == nil {
		return nil
	}

	code, ok := solana.CustomErrorCode(err)
	if !ok {
		return err
	}

	if sentinel, ok := errorsByCode[code]; ok {
		return sentinel
	}
	return err
}

// ErrorCode returns the custom program error code for a sentinel error.
func ErrorCode(err error) (solana.CustomError, bool) {
	for code, sentinel := range errorsByCode {
		if errors.Is(err, sentinel) {
			return code, true
		}
	}
	return 0, false
}
