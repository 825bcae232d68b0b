package domain

import "time"

// Coupon Model. The cleanup job deletes rows that are expired, deactivated
// or usage-exhausted; everything else about coupons (pricing, redemption)
// belongs to the storefront.
type Coupon struct {
	ID         uint      `gorm:"primaryKey"`            // Primary key
	Code       string    `gorm:"unique;not null"`       // Coupon code
	Active     bool      `gorm:"not null;default:true"` // Deactivated coupons are purged
	ExpiresAt  time.Time `gorm:"index;not null"`        // Expiry date
	UsageLimit int       `gorm:"not null"`              // Maximum redemptions
	TimesUsed  int       `gorm:"not null;default:0"`    // Redemptions so far
	CreatedAt  time.Time // Timestamp of creation
}

// Dead reports whether the coupon is definitively unusable and safe to purge.
func (c Coupon) Dead(now time.Time) bool {
	return !c.Active || !c.ExpiresAt.After(now) || c.TimesUsed >= c.UsageLimit
}
