// Package models defines the persisted records: the operation journal for
// the batched pipelines and the secret tables served by the signing service.
// Passwords and commitments are never stored here; the journal holds only
// operation progress and transaction hashes.
package models

import (
	"time"
)

// Journal states for a batched pipeline run. The approval step and the main
// call are separate transactions, so a run can legitimately strand in
// StateApproved when the main call fails; the journal records that state
// rather than undoing the approval.
const (
	StatePending       = "pending"
	StateNeedsApproval = "needs_approval"
	StateApproved      = "approved"
	StateSubmitted     = "submitted"
	StateConfirmed     = "confirmed"
	StateFailed        = "failed"
)

// Operation kinds.
const (
	KindVault    = "vault"
	KindLock     = "lock"
	KindUnlock   = "unlock"
	KindUnvault  = "unvault"
	KindTimelock = "timelock"
)

// VaultOperation is one journaled pipeline run.
type VaultOperation struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	Kind           string `gorm:"type:varchar(16);index"`
	State          string `gorm:"type:varchar(16);index"`
	ChainID        uint64
	Wallet         string `gorm:"type:varchar(42);index"`
	Token          string `gorm:"type:varchar(42)"`
	Fungible       bool
	Amount         string `gorm:"type:varchar(80)"`
	TokenID        string `gorm:"type:varchar(80)"`
	ApprovalTxHash string `gorm:"type:varchar(66)"`
	TxHash         string `gorm:"type:varchar(66)"`
	Error          string `gorm:"type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (VaultOperation) TableName() string {
	return "vault_operations"
}

// UsernameSecret stores the TOTP secrets provisioned for a username. Served
// only by the signing service; the orchestration backend never reads it.
type UsernameSecret struct {
	Username     string `gorm:"primaryKey;type:varchar(64)"`
	OTPSecretOne string `gorm:"type:varchar(64)"`
	OTPSecretTwo string `gorm:"type:varchar(64)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UsernameSecret) TableName() string {
	return "username_secrets"
}

// UsernamePassword stores the plaintext password the oracle MFA check
// compares salted hashes against. Signing-service table only.
type UsernamePassword struct {
	Username  string `gorm:"primaryKey;type:varchar(64)"`
	Password  string `gorm:"type:varchar(64)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UsernamePassword) TableName() string {
	return "username_passwords"
}
