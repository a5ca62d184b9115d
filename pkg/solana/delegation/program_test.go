package delegation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alizeeshan1234/er-transfer/pkg/solana"
)

var erTransferProgram = solana.MustPublicKeyFromString("3jZTjopbnwnbcKmTk1HboEsrzJhF8bao2BL2C4p6c1Wi")

func TestGetAddresses(t *testing.T) {
	for _, tc := range []struct {
		balance  string
		buffer   string
		record   string
		metadata string
	}{
		{
			balance:  "DSVEmWy78Byv1cHx8mnNdeCQwVQUx5fja9MZGj2nyucW",
			buffer:   "2HcymXbp6tbR6FKujR4ZSG83Wjb2kn6YpWW4dhKrnVEn",
			record:   "7bKn2Cwvrftpd8zPbMvWAmdbvuFmg4LBq5A7Vzqni7du",
			metadata: "5LWdQ5wRTqzfTJcuTLqnHehwxo3siwyxVHtB5xCnRe3V",
		},
		{
			balance:  "FhMM8N4sZ5XVvkXy8u64nKcvtGgqJq2gV51p2xcCDkjG",
			buffer:   "EY2uS2MF1dEghXcWB9gtKQ379S1dmhzp6rTiamnrn8H3",
			record:   "9y67xPEELiQaex5wnoYBaNmQKW1xY1sNSpkYtjP1r63E",
			metadata: "EZqwBCTtxvdWXAxyrsNCi6697cip6tYi2LYB4k5CgGr1",
		},
	} {
		addresses, err := GetAddresses(erTransferProgram, solana.MustPublicKeyFromString(tc.balance))
		require.NoError(t, err)

		assert.Equal(t, tc.buffer, solana.ToBase58(addresses.Buffer))
		assert.Equal(t, tc.record, solana.ToBase58(addresses.DelegationRecord))
		assert.Equal(t, tc.metadata, solana.ToBase58(addresses.DelegationMetadata))
	}
}

func TestBumps(t *testing.T) {
	balance := solana.MustPublicKeyFromString("DSVEmWy78Byv1cHx8mnNdeCQwVQUx5fja9MZGj2nyucW")

	_, bump, err := GetBufferAddress(erTransferProgram, balance)
	require.NoError(t, err)
	assert.EqualValues(t, 255, bump)

	_, bump, err = GetDelegationRecordAddress(balance)
	require.NoError(t, err)
	assert.EqualValues(t, 251, bump)

	_, bump, err = GetDelegationMetadataAddress(balance)
	require.NoError(t, err)
	assert.EqualValues(t, 252, bump)
}

func TestDelegationRecord(t *testing.T) {
	validator := solana.MustPublicKeyFromString("codeHy87wGD5oMRLG75qKqsSi1vWE3oxNyYmXo5F9YR")

	expected := DelegationRecord{
		Authority:         validator,
		Owner:             erTransferProgram,
		DelegationSlot:    1234,
		Lamports:          1_000_000,
		CommitFrequencyMs: 30_000,
	}

	encoded, err := expected.Marshal()
	require.NoError(t, err)
	require.Len(t, encoded, DelegationRecordSize)
	assert.EqualValues(t, 100, encoded[0])

	actual, err := DelegationRecordFromAccountInfo(solana.AccountInfo{
		Data:  encoded,
		Owner: ProgramKey,
	})
	require.NoError(t, err)
	assert.Equal(t, expected, *actual)

	_, err = DelegationRecordFromAccountInfo(solana.AccountInfo{Data: encoded, Owner: erTransferProgram})
	assert.Equal(t, ErrInvalidAccountOwner, err)

	var record DelegationRecord
	assert.ErrorIs(t, record.Unmarshal(encoded[:10]), ErrInvalidAccountSize)

	encoded[0] = 1
	assert.Equal(t, ErrInvalidDiscriminator, record.Unmarshal(encoded))
}
