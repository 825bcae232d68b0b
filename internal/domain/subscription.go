package domain

import "time"

// Push transport classes. FCM superseded the legacy web-push endpoints;
// registering an endpoint of a newer class removes the user's older-class
// endpoints (migration policy, see internal/registry).
const (
	TransportWebPush = "webpush" // Legacy browser push endpoints
	TransportFCM     = "fcm"     // Firebase Cloud Messaging device tokens
)

// PushSubscription Model
type PushSubscription struct {
	ID             uint      `gorm:"primaryKey"`                           // Primary key
	UserID         uint      `gorm:"uniqueIndex:idx_user_token;not null"`  // Foreign key to User
	Token          string    `gorm:"uniqueIndex:idx_user_token;not null"`  // Opaque device push token
	TransportClass string    `gorm:"not null;default:fcm"`                 // Delivery class the token belongs to
	CreatedAt      time.Time // Timestamp of registration (refreshed on re-register)
}
