package model

import "time"

// Provisioning event types recorded in the outbox.
const (
	EventWalletCreated     = "WalletCreated"
	EventWalletReactivated = "WalletReactivated"
	EventWalletDeleted     = "WalletDeleted"
	EventContractDeployed  = "ContractDeployed"
)

// OutboxEvent records a provisioning mutation in the same transaction as the
// store write, so the gap between an external call succeeding and the local
// write landing is observable downstream. cmd/reconciler drains the table.
type OutboxEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	Aggregate   string    `gorm:"size:64;not null"`
	AggregateID uint64    `gorm:"not null"`
	EventType   string    `gorm:"size:64;not null"`
	Payload     string    `gorm:"type:text;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	Processed   bool      `gorm:"not null;default:false"`
	ProcessedAt *time.Time
}

func (OutboxEvent) TableName() string { return "event_outbox" }
