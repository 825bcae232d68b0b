package domain

// Notification Model. One row is written for every delivery attempt so the
// user-facing history is complete even when the device was unreachable.
type Notification struct {
	ID        string `gorm:"type:char(36);primaryKey"` // UUID primary key
	UserID    uint   `gorm:"index;not null"`           // Foreign key to User
	Title     string `gorm:"not null"`                 // Notification title
	Body      string `gorm:"not null"`                 // Notification body
	Link      string // Link opened on tap, defaulted to the root path by the dispatcher
	IsRead    bool   `gorm:"not null;default:false"`   // Flipped by the history endpoint when fetched
	CreatedAt int64  `gorm:"index;autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
