package delegation

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/near/borsh-go"
	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

const (
	discriminatorSize = 8

	delegationRecordDiscriminator = 100

	// DelegationRecordSize is the on-chain size of a delegation record,
	// including the discriminator.
	DelegationRecordSize = discriminatorSize + 2*ed25519.PublicKeySize + 3*8
)

var (
	ErrInvalidAccountSize   = errors.New("invalid delegation record size")
	ErrInvalidDiscriminator = errors.New("invalid delegation record discriminator")
	ErrInvalidAccountOwner  = errors.New("delegation record not owned by the delegation program")
)

// DelegationRecord is created by the delegation program when an account is
// delegated and closed again on undelegation.
type DelegationRecord struct {
	// Authority is the validator the account is delegated to.
	Authority ed25519.PublicKey

	// Owner is the program that owned the account before delegation.
	Owner ed25519.PublicKey

	DelegationSlot    uint64
	Lamports          uint64
	CommitFrequencyMs uint64
}

type delegationRecordLayout struct {
	Authority         [32]byte
	Owner             [32]byte
	DelegationSlot    uint64
	Lamports          uint64
	CommitFrequencyMs uint64
}

func (r DelegationRecord) Marshal() ([]byte, error) {
	var layout delegationRecordLayout
	copy(layout.Authority[:], r.Authority)
	copy(layout.Owner[:], r.Owner)
	layout.DelegationSlot = r.DelegationSlot
	layout.Lamports = r.Lamports
	layout.CommitFrequencyMs = r.CommitFrequencyMs

	body, err := borsh.Serialize(layout)
	if err != nil {
		return nil, err
	}

	b := make([]byte, discriminatorSize, DelegationRecordSize)
	binary.LittleEndian.PutUint64(b, delegationRecordDiscriminator)
	return append(b, body...), nil
}

func (r *DelegationRecord) Unmarshal(data []byte) error {
	if len(data) != DelegationRecordSize {
		return errors.Wrapf(ErrInvalidAccountSize, "got %d bytes", len(data))
	}
	if binary.LittleEndian.Uint64(data) != delegationRecordDiscriminator {
		return ErrInvalidDiscriminator
	}

	var layout delegationRecordLayout
	if err := borsh.Deserialize(&layout, data[discriminatorSize:]); err != nil {
		return errors.Wrap(err, "error decoding delegation record")
	}

	r.Authority = append(ed25519.PublicKey(nil), layout.Authority[:]...)
	r.Owner = append(ed25519.PublicKey(nil), layout.Owner[:]...)
	r.DelegationSlot = layout.DelegationSlot
	r.Lamports = layout.Lamports
	r.CommitFrequencyMs = layout.CommitFrequencyMs
	return nil
}

// DelegationRecordFromAccountInfo decodes a delegation record fetched over RPC.
func DelegationRecordFromAccountInfo(info solana.AccountInfo) (*DelegationRecord, error) {
	if !bytes.Equal(info.Owner, ProgramKey) {
		return nil, ErrInvalidAccountOwner
	}

	var record DelegationRecord
	if err := record.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	return &record, nil
}
