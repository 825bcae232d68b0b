package jobs

import (
	"context" // Context for storage operations
	"fmt"     // Error wrapping

	"loyalty_wallet/internal/domain"  // Importing domain models
	"loyalty_wallet/internal/metrics" // Prometheus counters

	"github.com/sirupsen/logrus" // Logging library
)

// RunCouponCleanup purges definitively-dead promotional records: expired,
// explicitly deactivated, or usage-exhausted coupons. Pure storage
// retention, no notification and no ledger interaction; destructive, so
// the route guarding it requires the scheduler secret.
func (s *Scanner) RunCouponCleanup(ctx context.Context) (Report, error) {
	now := s.now()
	// SQL form of domain.Coupon.Dead; keep the two in sync
	res := s.db.WithContext(ctx).
		Where("expires_at <= ? OR active = ? OR times_used >= usage_limit", now, false).
		Delete(&domain.Coupon{})
	if res.Error != nil {
		metrics.JobRuns.WithLabelValues("coupon_cleanup", "error").Inc()
		return Report{}, fmt.Errorf("coupon cleanup: %w", res.Error)
	}
	deleted := int(res.RowsAffected)
	metrics.JobRuns.WithLabelValues("coupon_cleanup", "ok").Inc()
	logrus.WithFields(logrus.Fields{"deleted": deleted}).Info("Coupon cleanup completed")
	return Report{Scanned: deleted, Affected: deleted}, nil
}
