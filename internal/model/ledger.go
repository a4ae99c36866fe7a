package model

import "time"

// ContractType is the closed set of per-game contract kinds.
type ContractType string

const (
	ContractNFT  ContractType = "NFT"
	ContractLock ContractType = "LOCK"
)

// Valid reports whether t names a known contract kind.
func (t ContractType) Valid() bool {
	return t == ContractNFT || t == ContractLock
}

// GameContract is the per-game ledger row. Rows are seeded at game
// registration time; the deploy flow only ever fills in NFTContract or
// LockContract, each exactly once, and never clears them.
type GameContract struct {
	ID              uint64  `gorm:"primaryKey"`
	Company         int     `gorm:"not null;uniqueIndex:idx_contract_game"`
	GameIndex       int     `gorm:"not null;uniqueIndex:idx_contract_game"`
	AppID           string  `gorm:"size:64;not null"`
	NFTContract     *string `gorm:"size:128"`
	LockContract    *string `gorm:"size:128"`
	ProviderAddress string  `gorm:"size:128;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (GameContract) TableName() string { return "game_contract" }

// GameName localizes a game title. There is no FK to game_contract; a
// missing row for a (company, game, language) simply joins to NULL.
type GameName struct {
	ID        uint64 `gorm:"primaryKey"`
	Company   int    `gorm:"not null;index:idx_game_name"`
	GameIndex int    `gorm:"not null;index:idx_game_name"`
	Language  string `gorm:"size:8;not null;index:idx_game_name"`
	Name      string `gorm:"size:256;not null"`
}

func (GameName) TableName() string { return "game_name" }
