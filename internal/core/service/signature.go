package service

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"github.com/AppChainLabs/authd/internal/core/domain"
)

// VerifyWalletSignature dispatches signature verification over the closed set
// of wallet credential types. An unknown or non-wallet type is an error, not
// a failed verification: no tag may ever slip through a default branch and
// pass.
func VerifyWalletSignature(t domain.AuthType, message, signedData, walletAddress string) (bool, error) {
	switch t {
	case domain.AuthTypeEVMWallet:
		return verifyEVMSignature(message, signedData, walletAddress), nil
	case domain.AuthTypeSolanaWallet:
		return verifySolanaSignature(message, signedData, walletAddress), nil
	case domain.AuthTypePassword:
		return false, fmt.Errorf("auth type %q is not a wallet type", t)
	default:
		return false, fmt.Errorf("unsupported auth type %q", t)
	}
}

// verifyEVMSignature recovers the signer of an eth_sign/personal_sign message
// and compares it to the claimed address. Addresses are normalized through
// common.HexToAddress, so comparison is case-insensitive per chain convention.
func verifyEVMSignature(message, signedData, walletAddress string) bool {
	sig, err := hexutil.Decode(signedData)
	if err != nil || len(sig) != ethcrypto.SignatureLength {
		return false
	}
	// Wallets emit the recovery id as 27/28; SigToPub expects 0/1.
	if sig[ethcrypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[ethcrypto.RecoveryIDOffset] -= 27
	}
	if sig[ethcrypto.RecoveryIDOffset] > 1 {
		return false
	}

	pub, err := ethcrypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false
	}
	if !common.IsHexAddress(walletAddress) {
		return false
	}
	return ethcrypto.PubkeyToAddress(*pub) == common.HexToAddress(walletAddress)
}

// verifySolanaSignature checks an ed25519 detached signature of the UTF-8
// message. The wallet address is the base58-encoded public key; signedData is
// the base58-encoded 64-byte signature.
func verifySolanaSignature(message, signedData, walletAddress string) bool {
	pub, err := base58.Decode(walletAddress)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base58.Decode(signedData)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), []byte(message), sig)
}
