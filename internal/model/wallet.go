package model

import "time"

// WalletType is the closed set of wallet kinds.
type WalletType string

const (
	WalletSingle WalletType = "SINGLE"
	WalletMulti  WalletType = "MULTI"
)

// Valid reports whether t names a known wallet kind.
func (t WalletType) Valid() bool {
	return t == WalletSingle || t == WalletMulti
}

// Wallet is one blockchain account registered by a game provider.
// MULTI rows carry the SINGLE address that requested their creation in
// ProviderAddress; SINGLE rows leave it empty. Rows are never hard-deleted:
// Deleted is flipped instead, and re-registering the same address flips it
// back on the same row.
type Wallet struct {
	ID              uint64     `gorm:"primaryKey"`
	Company         int        `gorm:"not null;index:idx_wallet_lookup"`
	Address         string     `gorm:"size:128;not null;index:idx_wallet_lookup"`
	WalletType      WalletType `gorm:"size:16;not null;index:idx_wallet_lookup"`
	ProviderAddress string     `gorm:"size:128;not null;default:''"`
	Deleted         bool       `gorm:"not null;default:false"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`
}

func (Wallet) TableName() string { return "wallet" }
