package ledger

import (
	"context" // Context for storage operations
	"errors"  // Sentinel error checks
	"time"    // Timestamps

	"loyalty_wallet/internal/domain" // Importing domain models
	"loyalty_wallet/internal/utils"  // Cache helpers

	"github.com/google/uuid"     // UUID transaction IDs
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // SQL expression helpers
)

// Store owns every balance-affecting mutation. The transaction log is the
// source of truth; User.CoinBalance is a materialized cache of it and the
// two must never diverge, so both are written inside one database
// transaction with guarded atomic updates.
type Store struct {
	db    *gorm.DB     // Database handle
	cache *utils.Cache // Invalidates the wallet read cache after mutations, nil-safe
}

// NewStore returns a ledger store. cache may be nil (no cache to invalidate).
func NewStore(db *gorm.DB, cache *utils.Cache) *Store {
	return &Store{db: db, cache: cache}
}

// Credit appends a credit transaction and atomically increments the
// balance, lifetime total and tier. Fails with ErrInvalidAmount if amount
// is not positive.
func (s *Store) Credit(ctx context.Context, userID uint, amount int64, description string) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}
	txID := uuid.NewString() // Transaction ID, returned to the caller
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		// One guarded statement: the increments and the tier all read the
		// row's current committed values, so concurrent credits serialize on
		// the row write and cannot leave a tier computed from a stale total
		res := tx.Model(&domain.User{}).Where("id = ?", userID).Updates(map[string]any{
			"coin_balance":        gorm.Expr("coin_balance + ?", amount),
			"total_spent":         gorm.Expr("total_spent + ?", amount),
			"tier":                tierExpr(amount),
			"last_transaction_at": now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// Append the log entry
		return tx.Create(&domain.CoinTransaction{
			ID:          txID,
			UserID:      userID,
			Type:        domain.TxCredit,
			Amount:      amount,
			Description: description,
		}).Error
	})
	if err != nil {
		return "", err
	}
	s.logMutation(userID, domain.TxCredit, amount, description)
	s.invalidate(ctx, userID)
	return txID, nil
}

// tierExpr builds the tier assignment for the credit UPDATE. It recomputes
// the tier from the post-credit lifetime total in SQL so the value derives
// from the same committed row the increment applies to. total_spent here is
// the pre-increment column value: the tier assignment sorts before the
// total_spent assignment, and SQLite always evaluates against the original
// row. Thresholds mirror domain.TierFor.
func tierExpr(amount int64) clause.Expr {
	return gorm.Expr(
		"CASE WHEN total_spent + ? >= ? THEN ? WHEN total_spent + ? >= ? THEN ? WHEN total_spent + ? >= ? THEN ? ELSE ? END",
		amount, domain.TierPlatinumAt, domain.TierPlatinum,
		amount, domain.TierGoldAt, domain.TierGold,
		amount, domain.TierSilverAt, domain.TierSilver,
		domain.TierBronze,
	)
}

// Debit appends a debit transaction and atomically decrements the balance.
// Fails with ErrInsufficientBalance if the debit would drive the balance
// negative; the expiry path uses ZeroBalance instead.
func (s *Store) Debit(ctx context.Context, userID uint, amount int64, description string) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}
	txID := uuid.NewString()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		// Guarded atomic decrement: the WHERE clause makes the balance
		// check and the update one statement, so concurrent debits on the
		// same user cannot overdraw
		res := tx.Model(&domain.User{}).
			Where("id = ? AND coin_balance >= ?", userID, amount).
			Updates(map[string]any{
				"coin_balance":        gorm.Expr("coin_balance - ?", amount),
				"last_transaction_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Distinguish a missing user from an overdraw
			var count int64
			if err := tx.Model(&domain.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrInsufficientBalance
		}
		// Append the log entry with a negative signed amount
		return tx.Create(&domain.CoinTransaction{
			ID:          txID,
			UserID:      userID,
			Type:        domain.TxDebit,
			Amount:      -amount,
			Description: description,
		}).Error
	})
	if err != nil {
		return "", err
	}
	s.logMutation(userID, domain.TxDebit, amount, description)
	s.invalidate(ctx, userID)
	return txID, nil
}

// ZeroBalance resets the balance to zero and appends a matching
// expiry_zero debit, preserving balance == sum(log). A zero balance is a
// no-op (idempotent) and returns an empty transaction ID. The last
// transaction timestamp is deliberately left untouched so the expiry
// window predicate keeps excluding the account.
func (s *Store) ZeroBalance(ctx context.Context, userID uint, reason string) (string, error) {
	txID := ""
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if user.CoinBalance == 0 {
			return nil // Already zero, nothing to do
		}
		// Compare-and-swap on the balance read above; losing the race to a
		// concurrent mutation surfaces as ErrConflict and the sweep picks
		// the account up again on its next run
		res := tx.Model(&domain.User{}).
			Where("id = ? AND coin_balance = ?", userID, user.CoinBalance).
			Update("coin_balance", 0)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		txID = uuid.NewString()
		return tx.Create(&domain.CoinTransaction{
			ID:          txID,
			UserID:      userID,
			Type:        domain.TxExpiryZero,
			Amount:      -user.CoinBalance,
			Description: reason,
		}).Error
	})
	if err != nil {
		return "", err
	}
	if txID != "" {
		s.logMutation(userID, domain.TxExpiryZero, 0, reason)
		s.invalidate(ctx, userID)
	}
	return txID, nil
}

// WalletSummary is the ledger read model for the storefront UI.
type WalletSummary struct {
	Balance      int64                    `json:"balance"`      // Current coin balance
	Tier         string                   `json:"tier"`         // Wallet tier
	TotalSpent   int64                    `json:"total_spent"`  // Lifetime credited coins
	Transactions []domain.CoinTransaction `json:"transactions"` // Most recent transactions, newest first
}

// Summary returns the wallet fields plus the last 20 transactions.
func (s *Store) Summary(ctx context.Context, userID uint) (WalletSummary, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WalletSummary{}, ErrNotFound
		}
		return WalletSummary{}, err
	}
	var txs []domain.CoinTransaction
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(20).
		Find(&txs).Error; err != nil {
		return WalletSummary{}, err
	}
	return WalletSummary{
		Balance:      user.CoinBalance,
		Tier:         user.Tier,
		TotalSpent:   user.TotalSpent,
		Transactions: txs,
	}, nil
}

// logMutation records a balance mutation in the operational log.
func (s *Store) logMutation(userID uint, txType string, amount int64, description string) {
	logrus.WithFields(logrus.Fields{
		"user_id":     userID,      // User ID
		"type":        txType,      // Transaction type
		"amount":      amount,      // Coin amount
		"description": description, // Reason
	}).Info("Ledger transaction")
}

// invalidate drops the cached wallet read for the user after a mutation.
func (s *Store) invalidate(ctx context.Context, userID uint) {
	if err := s.cache.Delete(ctx, utils.WalletKey(userID)); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Cache invalidation failed")
	}
}
