package service

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

// evmKey is a throwaway secp256k1 key pair acting as a test wallet.
type evmKey struct {
	key *ecdsa.PrivateKey
}

func newEVMKey(t *testing.T) evmKey {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return evmKey{key: key}
}

func (k evmKey) address() string {
	return ethcrypto.PubkeyToAddress(k.key.PublicKey).Hex()
}

// sign produces an eth personal_sign style signature with the 27/28 recovery
// id wallets emit.
func (k evmKey) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := ethcrypto.Sign(accounts.TextHash([]byte(message)), k.key)
	require.NoError(t, err)
	sig[ethcrypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

func signEVM(t *testing.T, message string) (address, signedData string) {
	t.Helper()
	k := newEVMKey(t)
	return k.address(), k.sign(t, message)
}

func signSolana(t *testing.T, message string) (address, signedData string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	sig := ed25519.Sign(priv, []byte(message))
	return base58.Encode(pub), base58.Encode(sig)
}

func TestVerifyWalletSignature_EVM(t *testing.T) {
	const message = "Sign in with 0xabc.\nChallenge hash: deadbeef.\nDate: 2026-01-01T00:00:00Z."
	address, signedData := signEVM(t, message)

	ok, err := VerifyWalletSignature(domain.AuthTypeEVMWallet, message, signedData, address)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyWalletSignature(domain.AuthTypeEVMWallet, "tampered message", signedData, address)
	require.NoError(t, err)
	require.False(t, ok)

	otherAddress, _ := signEVM(t, message)
	ok, err = VerifyWalletSignature(domain.AuthTypeEVMWallet, message, signedData, otherAddress)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyWalletSignature_EVM_AddressCaseInsensitive(t *testing.T) {
	const message = "case check"
	address, signedData := signEVM(t, message)

	ok, err := VerifyWalletSignature(domain.AuthTypeEVMWallet, message, signedData, "0x"+lower(address[2:]))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyWalletSignature_EVM_MalformedInputs(t *testing.T) {
	const message = "malformed check"
	address, _ := signEVM(t, message)

	for _, signedData := range []string{"", "0x", "not-hex", "0xdeadbeef"} {
		ok, err := VerifyWalletSignature(domain.AuthTypeEVMWallet, message, signedData, address)
		require.NoError(t, err)
		require.False(t, ok, "signedData=%q must not verify", signedData)
	}
}

func TestVerifyWalletSignature_Solana(t *testing.T) {
	const message = "Sign in with sol.\nChallenge hash: cafe.\nDate: 2026-01-01T00:00:00Z."
	address, signedData := signSolana(t, message)

	ok, err := VerifyWalletSignature(domain.AuthTypeSolanaWallet, message, signedData, address)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyWalletSignature(domain.AuthTypeSolanaWallet, "tampered", signedData, address)
	require.NoError(t, err)
	require.False(t, ok)

	otherAddress, _ := signSolana(t, message)
	ok, err = VerifyWalletSignature(domain.AuthTypeSolanaWallet, message, signedData, otherAddress)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyWalletSignature_Solana_MalformedInputs(t *testing.T) {
	const message = "sol malformed"
	address, signedData := signSolana(t, message)

	ok, err := VerifyWalletSignature(domain.AuthTypeSolanaWallet, message, signedData, "!!!not-base58!!!")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = VerifyWalletSignature(domain.AuthTypeSolanaWallet, message, "tooShort", address)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyWalletSignature_RejectsNonWalletTypes(t *testing.T) {
	_, err := VerifyWalletSignature(domain.AuthTypePassword, "m", "s", "a")
	require.Error(t, err)

	_, err = VerifyWalletSignature(domain.AuthType("unknown"), "m", "s", "a")
	require.Error(t, err)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
