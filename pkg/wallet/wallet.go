// Package wallet reads and writes Solana CLI keypair files: a JSON array of
// the 64 bytes of an ed25519 private key.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	// EnvAnchorWallet overrides the default keypair path, as with the
	// Anchor CLI.
	EnvAnchorWallet = "ANCHOR_WALLET"

	defaultRelativePath = ".config/solana/id.json"
)

var ErrInvalidKeypair = errors.New("invalid keypair file")

// DefaultPath returns $ANCHOR_WALLET, falling back to ~/.config/solana/id.json.
func DefaultPath() string {
	if path := os.Getenv(EnvAnchorWallet); len(path) > 0 {
		return path
	}
	return filepath.Join("~", defaultRelativePath)
}

// Load reads a keypair file. A leading ~ is expanded to the home directory.
func Load(path string) (ed25519.PrivateKey, error) {
	expanded, err := expand(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading keypair %s", expanded)
	}

	return Parse(raw)
}

// Parse decodes the contents of a keypair file.
func Parse(raw []byte) (ed25519.PrivateKey, error) {
	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, errors.Wrap(ErrInvalidKeypair, err.Error())
	}
	if len(values) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(ErrInvalidKeypair, "expected %d bytes, got %d", ed25519.PrivateKeySize, len(values))
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, errors.Wrapf(ErrInvalidKeypair, "byte %d out of range: %d", i, v)
		}
		key[i] = byte(v)
	}

	// The trailing half must be the public key of the leading seed.
	derived := ed25519.NewKeyFromSeed(key.Seed())
	if !derived.Equal(key) {
		return nil, errors.Wrap(ErrInvalidKeypair, "public key does not match seed")
	}

	return key, nil
}

// Save writes key to path in the Solana CLI format, readable only by the
// current user.
func Save(path string, key ed25519.PrivateKey) error {
	expanded, err := expand(path)
	if err != nil {
		return err
	}

	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}

	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(expanded), 0o700); err != nil {
		return errors.Wrap(err, "error creating keypair directory")
	}
	return errors.Wrapf(os.WriteFile(expanded, raw, 0o600), "error writing keypair %s", expanded)
}

// Generate creates a new random keypair.
func Generate() (ed25519.PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	return key, err
}

// PublicKey returns the public half of key.
func PublicKey(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}

func expand(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "error resolving home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
