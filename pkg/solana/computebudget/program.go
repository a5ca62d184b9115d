// Package computebudget builds Compute Budget program instructions, used to
// attach a priority fee to base layer transactions.
package computebudget

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

// ComputeBudget111111111111111111111111111111
var ProgramKey = ed25519.PublicKey{3, 6, 70, 111, 229, 33, 23, 50, 255, 236, 173, 186, 114, 195, 155, 231, 188, 140, 229, 187, 197, 247, 18, 107, 44, 67, 155, 58, 64, 0, 0, 0}

const (
	commandSetComputeUnitLimit uint8 = 2
	commandSetComputeUnitPrice uint8 = 3
)

var ErrInvalidInstructionData = errors.New("invalid compute budget instruction data")

func SetComputeUnitLimit(computeUnitLimit uint32) solana.Instruction {
	data := make([]byte, 1+4)
	data[0] = commandSetComputeUnitLimit
	binary.LittleEndian.PutUint32(data[1:], computeUnitLimit)

	return solana.NewInstruction(ProgramKey, data)
}

// SetComputeUnitPrice sets the priority fee in micro-lamports per compute unit.
func SetComputeUnitPrice(microLamports uint64) solana.Instruction {
	data := make([]byte, 1+8)
	data[0] = commandSetComputeUnitPrice
	binary.LittleEndian.PutUint64(data[1:], microLamports)

	return solana.NewInstruction(ProgramKey, data)
}

// Budget is the compute budget requested by a message.
type Budget struct {
	UnitLimit *uint32
	UnitPrice *uint64
}

// IsComputeBudgetInstruction reports whether the instruction at index targets
// the Compute Budget program.
func IsComputeBudgetInstruction(m solana.Message, index int) bool {
	if index < 0 || index >= len(m.Instructions) {
		return false
	}
	return bytes.Equal(m.Accounts[m.Instructions[index].ProgramIndex], ProgramKey)
}

// DecompileBudget collects every compute budget instruction in the message.
func DecompileBudget(m solana.Message) (Budget, error) {
	var budget Budget

	for i, ix := range m.Instructions {
		if !IsComputeBudgetInstruction(m, i) {
			continue
		}
		if len(ix.Data) == 0 {
			return budget, ErrInvalidInstructionData
		}

		switch ix.Data[0] {
		case commandSetComputeUnitLimit:
			if len(ix.Data) != 5 {
				return budget, errors.Wrapf(ErrInvalidInstructionData, "instruction %d", i)
			}
			limit := binary.LittleEndian.Uint32(ix.Data[1:])
			budget.UnitLimit = &limit
		case commandSetComputeUnitPrice:
			if len(ix.Data) != 9 {
				return budget, errors.Wrapf(ErrInvalidInstructionData, "instruction %d", i)
			}
			price := binary.LittleEndian.Uint64(ix.Data[1:])
			budget.UnitPrice = &price
		default:
			return budget, errors.Wrapf(ErrInvalidInstructionData, "unsupported command %d", ix.Data[0])
		}
	}

	return budget, nil
}
