package jobs

import (
	"context" // Context for storage and dispatcher calls
	"fmt"     // Error wrapping
	"sync"    // Aggregate counters across workers
	"time"    // Window arithmetic

	"loyalty_wallet/internal/domain"  // Importing domain models
	"loyalty_wallet/internal/ledger"  // Balance mutations
	"loyalty_wallet/internal/metrics" // Prometheus counters
	"loyalty_wallet/internal/notify"  // Notification dispatch

	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/sync/errgroup" // Bounded fan-out
	"gorm.io/gorm"               // GORM ORM library
)

// Notifier is the dispatcher surface the scans need.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uint, title, body, link string) notify.DeliveryReport
}

// Report is the aggregate outcome of one job run, returned to the
// scheduler caller. Per-item failure detail goes to the operational log.
type Report struct {
	Scanned  int `json:"scanned"`  // Users matching the scan predicate
	Affected int `json:"affected"` // Users whose item completed
	Failed   int `json:"failed"`   // Users left for the next scheduled run
}

// Scanner drives the time-based state transitions: abandoned carts, coin
// expiry warnings and coin expiry. Each scan is idempotent and safe under
// at-least-once scheduling; per-user items run with bounded parallelism
// and never hold locks across storage or transport calls.
type Scanner struct {
	db          *gorm.DB         // User record storage
	ledger      *ledger.Store    // Balance mutations
	notifier    Notifier         // Notification dispatch
	quietPeriod time.Duration    // Cart inactivity before a nudge (12h)
	retention   time.Duration    // Coin lifetime from the last transaction (90d)
	warningLead time.Duration    // Warning window before expiry (7d)
	itemTimeout time.Duration    // Per-user work item budget
	workers     int              // Fan-out width
	now         func() time.Time // Injectable clock
}

// ScannerConfig carries the scan windows; zero values get defaults.
type ScannerConfig struct {
	QuietPeriod time.Duration // Default 12h
	Retention   time.Duration // Default 90 days
	WarningLead time.Duration // Default 7 days
	ItemTimeout time.Duration // Default 10s
	Workers     int           // Default 8
	Now         func() time.Time
}

// NewScanner wires a scanner with defaulted windows.
func NewScanner(db *gorm.DB, led *ledger.Store, notifier Notifier, cfg ScannerConfig) *Scanner {
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = 12 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 90 * 24 * time.Hour
	}
	if cfg.WarningLead <= 0 {
		cfg.WarningLead = 7 * 24 * time.Hour
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 10 * time.Second
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scanner{
		db:          db,
		ledger:      led,
		notifier:    notifier,
		quietPeriod: cfg.QuietPeriod,
		retention:   cfg.Retention,
		warningLead: cfg.WarningLead,
		itemTimeout: cfg.ItemTimeout,
		workers:     cfg.Workers,
		now:         cfg.Now,
	}
}

// RunAbandonedCartScan nudges users whose non-empty cart has been idle past
// the quiet period and who are not already flagged for it. The guard flag
// is set only after the notification attempt, and reset by the
// cart-mutation collaborator when the user touches their cart again.
func (s *Scanner) RunAbandonedCartScan(ctx context.Context) (Report, error) {
	cutoff := s.now().Add(-s.quietPeriod)
	var users []domain.User
	if err := s.db.WithContext(ctx).
		Where("cart_item_count > 0 AND cart_updated_at < ? AND abandoned_cart_flag = ?", cutoff, domain.FlagNormal).
		Find(&users).Error; err != nil {
		metrics.JobRuns.WithLabelValues("abandoned_cart", "error").Inc()
		return Report{}, fmt.Errorf("abandoned-cart scan query: %w", err)
	}
	report := s.forEach(ctx, "abandoned_cart", users, func(ctx context.Context, user domain.User) error {
		r := s.notifier.NotifyUser(ctx, user.ID,
			"You left something behind",
			"Your cart is still waiting - complete your order before it sells out.",
			"/cart")
		if r.HistoryID == "" {
			// Treated as transient: the flag stays Normal and the next run
			// retries; re-delivery on retry is acceptable
			return fmt.Errorf("notification not recorded for user %d", user.ID)
		}
		// notify-then-flag ordering: Normal -> Flagged only after the send
		// attempt was issued
		return s.db.WithContext(ctx).Model(&domain.User{}).
			Where("id = ? AND abandoned_cart_flag = ?", user.ID, domain.FlagNormal).
			Update("abandoned_cart_flag", domain.FlagFlagged).Error
	})
	metrics.JobRuns.WithLabelValues("abandoned_cart", "ok").Inc()
	return report, nil
}

// RunCoinExpiryScan applies the two retention sub-windows measured from the
// last transaction. Accounts past the full retention window are zeroed and
// told so; accounts inside the trailing warning window are warned only.
// The zeroed balance drops the account out of both predicates, so the scan
// needs no guard flag.
func (s *Scanner) RunCoinExpiryScan(ctx context.Context) (Report, error) {
	now := s.now()
	expiryCutoff := now.Add(-s.retention)                    // At or before this: expired
	warningCutoff := now.Add(-(s.retention - s.warningLead)) // At or before this (but after expiry): warn

	var expired []domain.User
	if err := s.db.WithContext(ctx).
		Where("coin_balance > 0 AND last_transaction_at <= ?", expiryCutoff).
		Find(&expired).Error; err != nil {
		metrics.JobRuns.WithLabelValues("coin_expiry", "error").Inc()
		return Report{}, fmt.Errorf("coin-expiry scan query: %w", err)
	}
	expiredReport := s.forEach(ctx, "coin_expiry", expired, func(ctx context.Context, user domain.User) error {
		if _, err := s.ledger.ZeroBalance(ctx, user.ID, "Reward coins expired"); err != nil {
			return fmt.Errorf("zero balance for user %d: %w", user.ID, err)
		}
		metrics.CoinsExpired.Add(float64(user.CoinBalance))
		s.notifier.NotifyUser(ctx, user.ID,
			"Your reward coins expired",
			fmt.Sprintf("%d coins expired after %d days without activity.", user.CoinBalance, int(s.retention.Hours()/24)),
			"/wallet")
		return nil
	})

	var warned []domain.User
	if err := s.db.WithContext(ctx).
		Where("coin_balance > 0 AND last_transaction_at > ? AND last_transaction_at <= ?", expiryCutoff, warningCutoff).
		Find(&warned).Error; err != nil {
		metrics.JobRuns.WithLabelValues("coin_expiry", "error").Inc()
		return expiredReport, fmt.Errorf("coin-warning scan query: %w", err)
	}
	warnReport := s.forEach(ctx, "coin_warning", warned, func(ctx context.Context, user domain.User) error {
		r := s.notifier.NotifyUser(ctx, user.ID,
			"Your reward coins expire soon",
			fmt.Sprintf("%d coins expire within %d days - redeem them on your next order.", user.CoinBalance, int(s.warningLead.Hours()/24)),
			"/wallet")
		if r.HistoryID == "" {
			return fmt.Errorf("notification not recorded for user %d", user.ID)
		}
		return nil
	})

	metrics.JobRuns.WithLabelValues("coin_expiry", "ok").Inc()
	return Report{
		Scanned:  expiredReport.Scanned + warnReport.Scanned,
		Affected: expiredReport.Affected + warnReport.Affected,
		Failed:   expiredReport.Failed + warnReport.Failed,
	}, nil
}

// forEach runs fn for every user with bounded parallelism and a per-item
// timeout. Per-item failures are counted and logged, never abort the rest
// of the batch.
func (s *Scanner) forEach(ctx context.Context, job string, users []domain.User, fn func(ctx context.Context, user domain.User) error) Report {
	var (
		mu     sync.Mutex // Guards report
		report = Report{Scanned: len(users)}
	)
	g := new(errgroup.Group)
	g.SetLimit(s.workers) // Bounded fan-out
	for _, user := range users {
		user := user // Per-iteration copy for the closure
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
			defer cancel()
			err := fn(itemCtx, user)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				metrics.JobItems.WithLabelValues(job, "error").Inc()
				logrus.WithFields(logrus.Fields{
					"job":     job,         // Job kind
					"user_id": user.ID,     // User ID
					"error":   err.Error(), // Item error
				}).Warn("Scan item failed")
				return nil // Continue-on-error across users
			}
			report.Affected++
			metrics.JobItems.WithLabelValues(job, "ok").Inc()
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors; counters carry the outcome
	return report
}
