package models

import "time"

type WalletTransactionType string

const (
	WalletTransactionCredit WalletTransactionType = "credit"
	WalletTransactionDebit  WalletTransactionType = "debit"
)

type WalletTransactionSource string

const (
	SourceWelcomeBonus     WalletTransactionSource = "welcome_bonus"
	SourceDailyLogin       WalletTransactionSource = "daily_login"
	SourceContestJoin      WalletTransactionSource = "contest_join"
	SourceContestWin       WalletTransactionSource = "contest_win"
	SourceContestRefund    WalletTransactionSource = "contest_refund"
	SourceSystemAdjustment WalletTransactionSource = "system_adjustment"
)

// WalletTransaction is one immutable ledger entry. The unique EventKey is the
// idempotency mechanism: at most one row may ever exist per business event.
// Rows are only created by the wallet service, never updated or deleted.
type WalletTransaction struct {
	ID          string                  `gorm:"primaryKey" json:"id"`
	UserID      string                  `gorm:"index;not null" json:"user_id"`
	Type        WalletTransactionType   `gorm:"type:varchar(8);not null" json:"type"`
	Source      WalletTransactionSource `gorm:"type:varchar(32);not null" json:"source"`
	Amount      int64                   `gorm:"not null" json:"amount"`
	Title       string                  `gorm:"not null" json:"title"`
	ReferenceID string                  `json:"reference_id,omitempty"`
	EventKey    string                  `gorm:"uniqueIndex;not null" json:"event_key"`
	CreatedAt   time.Time               `json:"created_at" gorm:"autoCreateTime"`
}
