package domain

import "time"

// FlagState is the per-condition notification guard state machine.
// A condition moves Normal -> Flagged when its notification is sent, and
// back to Normal only via the external reset transition (the cart-mutation
// collaborator for the abandoned-cart condition).
type FlagState string

const (
	FlagNormal  FlagState = "normal"  // Condition not yet notified
	FlagFlagged FlagState = "flagged" // Notification sent, waiting for reset
)

// Wallet tier names, derived from lifetime credited coins.
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// Lifetime-coin thresholds at which each tier starts. Shared with the
// ledger, which recomputes the tier in SQL inside the credit statement.
const (
	TierSilverAt   int64 = 500
	TierGoldAt     int64 = 2000
	TierPlatinumAt int64 = 10000
)

// User Model. Wallet fields live embedded on the user record and are
// mutated only through the ledger store, never written directly.
type User struct {
	ID                uint       `gorm:"primaryKey"`         // Primary key
	Username          string     `gorm:"unique;not null"`    // Unique username
	Role              string     `gorm:"default:user"`       // Role: user or admin
	CoinBalance       int64      `gorm:"not null;default:0"` // Current coin balance (materialized from the transaction log)
	TotalSpent        int64      `gorm:"not null;default:0"` // Lifetime credited coins, drives the tier
	Tier              string     `gorm:"default:bronze"`     // Wallet tier
	LastTransactionAt *time.Time // Timestamp of the last balance-affecting transaction
	CartItemCount     int        `gorm:"not null;default:0"` // Number of items in the server-side cart
	CartUpdatedAt     *time.Time // Timestamp of the last cart mutation
	AbandonedCartFlag FlagState  `gorm:"default:normal"` // Guard state for the abandoned-cart notification
}

// TierFor returns the tier name for a lifetime credited coin total.
func TierFor(totalSpent int64) string {
	switch {
	case totalSpent >= TierPlatinumAt:
		return TierPlatinum
	case totalSpent >= TierGoldAt:
		return TierGold
	case totalSpent >= TierSilverAt:
		return TierSilver
	default:
		return TierBronze
	}
}
