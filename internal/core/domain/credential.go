package domain

import "time"

// AuthType tags the credential variant carried by an AuthEntity. The set is
// closed: every dispatch site switches over it and treats an unknown tag as a
// hard failure, never as a pass-through.
type AuthType string

const (
	AuthTypePassword     AuthType = "password"
	AuthTypeEVMWallet    AuthType = "evm_wallet"
	AuthTypeSolanaWallet AuthType = "solana_wallet"
)

// Valid reports whether t is a known credential type.
func (t AuthType) Valid() bool {
	switch t {
	case AuthTypePassword, AuthTypeEVMWallet, AuthTypeSolanaWallet:
		return true
	}
	return false
}

// IsWallet reports whether t is a wallet-signature credential type.
func (t AuthType) IsWallet() bool {
	return t == AuthTypeEVMWallet || t == AuthTypeSolanaWallet
}

// HashAlgorithm identifies the one-way hash a password digest was produced
// with. Verification rejects digests carrying an unknown tag.
type HashAlgorithm string

const HashBCrypt HashAlgorithm = "bcrypt"

// PasswordCredential is the stored payload of a password entity.
type PasswordCredential struct {
	Digest    string        `json:"-"`
	Algorithm HashAlgorithm `json:"algorithm"`
}

// WalletCredential is the stored payload of a wallet entity. The address is
// globally unique across all users.
type WalletCredential struct {
	WalletAddress string `json:"wallet_address"`
}

// AuthEntity is one specific way a user can prove identity. Exactly one of
// Password/Wallet is set, matching Type.
type AuthEntity struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Type      AuthType            `json:"type"`
	Password  *PasswordCredential `json:"password,omitempty"`
	Wallet    *WalletCredential   `json:"wallet,omitempty"`
	IsPrimary bool                `json:"is_primary"`
	CreatedAt time.Time           `json:"created_at"`
}

// WalletAddress returns the wallet address or "" for non-wallet entities.
func (e *AuthEntity) WalletAddress() string {
	if e.Wallet == nil {
		return ""
	}
	return e.Wallet.WalletAddress
}
