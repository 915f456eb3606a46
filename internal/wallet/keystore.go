package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"

	"github.com/mr-tron/base58"

	"autotrader/internal/models"
	"autotrader/internal/store"
)

// KeyStore owns the signing key for one user. The secret never leaves the
// package except through Export; everything else sees the public key and a
// Sign method.
type KeyStore struct {
	mu       sync.Mutex
	store    *store.Store
	deriver  Deriver
	priv     ed25519.PrivateKey
	mnemonic string
}

func New(st *store.Store, deriver Deriver) (*KeyStore, error) {
	k := &KeyStore{store: st, deriver: deriver}

	var persisted models.Wallet
	found, err := st.Load(store.FileWallet, &persisted)
	if err != nil {
		return nil, err
	}
	if found {
		raw, err := base58.Decode(persisted.SecretKey)
		if err != nil || len(raw) != ed25519.PrivateKeySize {
			return nil, &models.ValidationError{Field: "wallet", Msg: "persisted secret key is malformed"}
		}
		k.priv = ed25519.PrivateKey(raw)
		k.mnemonic = persisted.Mnemonic
	}
	return k, nil
}

func (k *KeyStore) HasKey() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.priv != nil
}

// Generate creates the user's wallet. Mnemonic derivation is preferred when
// the capability was injected; otherwise a raw keypair is generated. An
// existing wallet is never silently regenerated.
func (k *KeyStore) Generate() (models.Wallet, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.priv != nil {
		return models.Wallet{}, &models.ValidationError{Field: "wallet", Msg: "wallet already exists, reset it first"}
	}

	if k.deriver != nil {
		mnemonic, err := k.deriver.NewMnemonic()
		if err != nil {
			return models.Wallet{}, err
		}
		priv, err := k.deriver.Derive(mnemonic)
		if err != nil {
			return models.Wallet{}, err
		}
		k.priv = priv
		k.mnemonic = mnemonic
	} else {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return models.Wallet{}, fmt.Errorf("generate keypair: %w", err)
		}
		k.priv = priv
		k.mnemonic = ""
	}

	return k.persistLocked()
}

// Import accepts either a word phrase (12 or more space-separated words,
// checksum validated) or a base58-encoded secret key.
func (k *KeyStore) Import(input string) (models.Wallet, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	input = strings.TrimSpace(input)
	if input == "" {
		return models.Wallet{}, &models.ValidationError{Field: "wallet", Msg: "empty key material"}
	}

	if words := strings.Fields(input); len(words) >= 12 {
		if k.deriver == nil {
			return models.Wallet{}, &models.ConfigurationError{Op: "wallet.import", Msg: "mnemonic derivation capability not available"}
		}
		phrase := strings.Join(words, " ")
		if !k.deriver.Validate(phrase) {
			return models.Wallet{}, &models.ValidationError{Field: "mnemonic", Msg: "phrase failed checksum validation"}
		}
		priv, err := k.deriver.Derive(phrase)
		if err != nil {
			return models.Wallet{}, &models.ValidationError{Field: "mnemonic", Msg: err.Error()}
		}
		k.priv = priv
		k.mnemonic = phrase
		return k.persistLocked()
	}

	raw, err := base58.Decode(input)
	if err != nil {
		return models.Wallet{}, &models.ValidationError{Field: "secret_key", Msg: "not valid base58"}
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		k.priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		k.priv = ed25519.NewKeyFromSeed(raw)
	default:
		return models.Wallet{}, &models.ValidationError{Field: "secret_key", Msg: fmt.Sprintf("unexpected key length %d", len(raw))}
	}
	k.mnemonic = ""
	return k.persistLocked()
}

func (k *KeyStore) Export() (models.Wallet, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.priv == nil {
		return models.Wallet{}, &models.ConfigurationError{Op: "wallet.export", Msg: "no wallet configured"}
	}
	return k.walletLocked(), nil
}

// Reset discards the in-memory key and deletes the persisted material. The
// orchestrator stops any running session before calling it.
func (k *KeyStore) Reset() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.priv = nil
	k.mnemonic = ""
	return k.store.Delete(store.FileWallet)
}

func (k *KeyStore) PublicKey() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.priv == nil {
		return "", &models.ConfigurationError{Op: "wallet.public_key", Msg: "no wallet configured"}
	}
	return base58.Encode(k.priv.Public().(ed25519.PublicKey)), nil
}

func (k *KeyStore) Sign(message []byte) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.priv == nil {
		return nil, &models.ConfigurationError{Op: "wallet.sign", Msg: "no wallet configured"}
	}
	return ed25519.Sign(k.priv, message), nil
}

func (k *KeyStore) walletLocked() models.Wallet {
	return models.Wallet{
		PublicKey: base58.Encode(k.priv.Public().(ed25519.PublicKey)),
		SecretKey: base58.Encode(k.priv),
		Mnemonic:  k.mnemonic,
	}
}

func (k *KeyStore) persistLocked() (models.Wallet, error) {
	w := k.walletLocked()
	if err := k.store.Save(store.FileWallet, w); err != nil {
		return models.Wallet{}, err
	}
	return w, nil
}
