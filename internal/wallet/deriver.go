package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// Deriver is the mnemonic capability. It is injected at construction; a
// KeyStore built without one can still handle raw keys but refuses
// mnemonic operations with a ConfigurationError.
type Deriver interface {
	NewMnemonic() (string, error)
	Derive(mnemonic string) (ed25519.PrivateKey, error)
	Validate(mnemonic string) bool
}

// Bip39Deriver derives ed25519 keys from BIP-39 mnemonics along the
// standard m/44'/501'/0'/0' path.
type Bip39Deriver struct{}

var derivationPath = []uint32{44, 501, 0, 0}

func (Bip39Deriver) NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

func (Bip39Deriver) Validate(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

func (d Bip39Deriver) Derive(mnemonic string) (ed25519.PrivateKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("mnemonic failed checksum validation")
	}
	seed := bip39.NewSeed(mnemonic, "")

	key, chainCode := masterKey(seed)
	for _, segment := range derivationPath {
		key, chainCode = deriveChild(key, chainCode, segment|hardenedOffset)
	}
	return ed25519.NewKeyFromSeed(key), nil
}

const hardenedOffset = 0x80000000

// SLIP-0010 ed25519 derivation; every segment is hardened.
func masterKey(seed []byte) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func deriveChild(key, chainCode []byte, index uint32) (childKey, childChain []byte) {
	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, key...)
	data = binary.BigEndian.AppendUint32(data, index)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}
