package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/solana/shortvec"
)

// versionPrefixMask marks a versioned (v0+) message. Only legacy messages are
// produced and accepted here.
const versionPrefixMask = 0x80

var ErrUnsupportedMessageVersion = errors.New("unsupported message version")

func (t Transaction) Marshal() []byte {
	b := bytes.NewBuffer(nil)

	_, _ = shortvec.EncodeLen(b, len(t.Signatures))
	for _, s := range t.Signatures {
		_, _ = b.Write(s[:])
	}

	_, _ = b.Write(t.Message.Marshal())

	return b.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	buf := bytes.NewBuffer(b)

	sigLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read signature length")
	}

	t.Signatures = make([]Signature, sigLen)
	for i := 0; i < sigLen; i++ {
		if _, err = io.ReadFull(buf, t.Signatures[i][:]); err != nil {
			return errors.Wrapf(err, "failed to read signature at %d", i)
		}
	}

	return (&t.Message).Unmarshal(buf.Bytes())
}

func (m Message) Marshal() []byte {
	b := bytes.NewBuffer(nil)

	_ = b.WriteByte(m.Header.NumSignatures)
	_ = b.WriteByte(m.Header.NumReadonlySigned)
	_ = b.WriteByte(m.Header.NumReadOnly)

	_, _ = shortvec.EncodeLen(b, len(m.Accounts))
	for _, a := range m.Accounts {
		_, _ = b.Write(a)
	}

	_, _ = b.Write(m.RecentBlockhash[:])

	_, _ = shortvec.EncodeLen(b, len(m.Instructions))
	for _, i := range m.Instructions {
		_ = b.WriteByte(i.ProgramIndex)

		_, _ = shortvec.EncodeLen(b, len(i.Accounts))
		_, _ = b.Write(i.Accounts)

		_, _ = shortvec.EncodeLen(b, len(i.Data))
		_, _ = b.Write(i.Data)
	}

	return b.Bytes()
}

func (m *Message) Unmarshal(b []byte) (err error) {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	if b[0]&versionPrefixMask != 0 {
		return ErrUnsupportedMessageVersion
	}

	buf := bytes.NewBuffer(b)

	var header [3]byte
	if _, err = io.ReadFull(buf, header[:]); err != nil {
		return errors.Wrap(err, "failed to read message header")
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	accountLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read account length")
	}
	m.Accounts = make([]ed25519.PublicKey, accountLen)
	for i := range m.Accounts {
		m.Accounts[i] = make([]byte, ed25519.PublicKeySize)
		if _, err = io.ReadFull(buf, m.Accounts[i]); err != nil {
			return errors.Wrapf(err, "failed to read account at %d", i)
		}
	}

	if _, err = io.ReadFull(buf, m.RecentBlockhash[:]); err != nil {
		return errors.Wrap(err, "failed to read recent blockhash")
	}

	instructionLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return errors.Wrap(err, "failed to read instruction length")
	}
	m.Instructions = make([]CompiledInstruction, instructionLen)
	for i := range m.Instructions {
		if m.Instructions[i], err = readCompiledInstruction(buf, len(m.Accounts)); err != nil {
			return errors.Wrapf(err, "failed to read instruction at %d", i)
		}
	}

	return nil
}

func readCompiledInstruction(buf *bytes.Buffer, numAccounts int) (CompiledInstruction, error) {
	var ix CompiledInstruction
	var err error

	if ix.ProgramIndex, err = buf.ReadByte(); err != nil {
		return ix, errors.Wrap(err, "failed to read program index")
	}
	if int(ix.ProgramIndex) >= numAccounts {
		return ix, errors.Errorf("program index out of range: %d", ix.ProgramIndex)
	}

	accountLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return ix, errors.Wrap(err, "failed to read instruction account length")
	}
	ix.Accounts = make([]byte, accountLen)
	if _, err = io.ReadFull(buf, ix.Accounts); err != nil {
		return ix, errors.Wrap(err, "failed to read instruction accounts")
	}
	for _, index := range ix.Accounts {
		if int(index) >= numAccounts {
			return ix, errors.Errorf("account index out of range: %d", index)
		}
	}

	dataLen, err := shortvec.DecodeLen(buf)
	if err != nil {
		return ix, errors.Wrap(err, "failed to read instruction data length")
	}
	ix.Data = make([]byte, dataLen)
	if _, err = io.ReadFull(buf, ix.Data); err != nil {
		return ix, errors.Wrap(err, "failed to read instruction data")
	}

	return ix, nil
}
