package domain

// Coin transaction types. The log is append-only: rows are never updated
// or deleted once written.
const (
	TxCredit     = "credit"      // Coins credited (order completion, signup bonus, ...)
	TxDebit      = "debit"       // Coins redeemed by the user
	TxExpiryZero = "expiry_zero" // Balance zeroed by the retention sweep
)

// CoinTransaction Model
type CoinTransaction struct {
	ID          string `gorm:"type:char(36);primaryKey"` // UUID primary key
	UserID      uint   `gorm:"index;not null"`           // Foreign key to User
	Type        string `gorm:"not null"`                 // Transaction type: credit, debit, expiry_zero
	Amount      int64  `gorm:"not null"`                 // Signed coin amount
	Description string // Human-readable reason
	CreatedAt   int64  `gorm:"index;autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
