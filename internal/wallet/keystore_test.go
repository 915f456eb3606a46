package wallet

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotrader/internal/models"
	"autotrader/internal/store"
)

func newTestKeyStore(t *testing.T, deriver Deriver) (*KeyStore, *store.Store) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	k, err := New(st, deriver)
	require.NoError(t, err)
	return k, st
}

func TestGenerateWithMnemonic(t *testing.T) {
	k, st := newTestKeyStore(t, Bip39Deriver{})

	w, err := k.Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, w.PublicKey)
	assert.Len(t, strings.Fields(w.Mnemonic), 12)
	assert.True(t, st.Exists(store.FileWallet))

	// Second generate must not silently replace the wallet.
	_, err = k.Generate()
	assert.Error(t, err)

	// The same mnemonic derives the same key.
	k2, _ := newTestKeyStore(t, Bip39Deriver{})
	w2, err := k2.Import(w.Mnemonic)
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey, w2.PublicKey)
}

func TestGenerateWithoutDeriver(t *testing.T) {
	k, _ := newTestKeyStore(t, nil)

	w, err := k.Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, w.PublicKey)
	assert.Empty(t, w.Mnemonic)
}

func TestImportRawSecretKey(t *testing.T) {
	k, _ := newTestKeyStore(t, nil)

	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	w, err := k.Import(base58.Encode(priv))
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(priv.Public().(ed25519.PublicKey)), w.PublicKey)

	sig, err := k.Sign([]byte("payload"))
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(priv.Public().(ed25519.PublicKey), []byte("payload"), sig))
}

func TestImportMalformedInput(t *testing.T) {
	k, _ := newTestKeyStore(t, Bip39Deriver{})

	testCases := []struct {
		desc  string
		input string
	}{
		{"empty", "   "},
		{"bad checksum phrase", strings.Repeat("abandon ", 11) + "abandon"},
		{"not base58", "0OIl+/"},
		{"wrong key length", base58.Encode([]byte{1, 2, 3})},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := k.Import(tc.input)
			var verr *models.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestImportMnemonicWithoutCapability(t *testing.T) {
	k, _ := newTestKeyStore(t, nil)

	phrase, err := Bip39Deriver{}.NewMnemonic()
	require.NoError(t, err)
	_, err = k.Import(phrase)
	var cerr *models.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestResetAndReload(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	k, err := New(st, Bip39Deriver{})
	require.NoError(t, err)

	w, err := k.Generate()
	require.NoError(t, err)

	// A fresh keystore over the same store loads the persisted key.
	reloaded, err := New(st, Bip39Deriver{})
	require.NoError(t, err)
	pub, err := reloaded.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey, pub)

	require.NoError(t, k.Reset())
	assert.False(t, st.Exists(store.FileWallet))
	assert.False(t, k.HasKey())
	_, err = k.Sign([]byte("x"))
	assert.Error(t, err)
}
