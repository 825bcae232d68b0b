package registry

import (
	"context" // Context for storage operations
	"errors"  // Sentinel error checks
	"time"    // Timestamp refresh on re-register

	"loyalty_wallet/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Upsert clause
)

// ErrUnknownTransport is returned for a transport class the registry does
// not know about.
var ErrUnknownTransport = errors.New("unknown transport class")

// transportRank orders delivery classes. Registering an endpoint of a
// higher-ranked class deletes the user's lower-ranked endpoints (the
// web-push to FCM migration policy). Dropping the policy once migration
// completes means removing the legacy entry.
var transportRank = map[string]int{
	domain.TransportWebPush: 1,
	domain.TransportFCM:     2,
}

// batchSize bounds how many subscriptions ResolveAll holds in memory at once.
const batchSize = 500

// Registry maps user identities to their live push delivery endpoints.
type Registry struct {
	db *gorm.DB // Database handle
}

// New returns a subscription registry.
func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Register upserts an endpoint by (userID, token). Re-registering the same
// token only refreshes its timestamp. As a side effect, endpoints of any
// superseded (lower-ranked) transport class are removed for the user.
func (r *Registry) Register(ctx context.Context, userID uint, token, transportClass string) error {
	rank, ok := transportRank[transportClass]
	if !ok {
		return ErrUnknownTransport
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Collect the superseded class names for this registration
		var superseded []string
		for class, classRank := range transportRank {
			if classRank < rank {
				superseded = append(superseded, class)
			}
		}
		// Drop the user's endpoints of superseded classes
		if len(superseded) > 0 {
			if err := tx.Where("user_id = ? AND transport_class IN ?", userID, superseded).
				Delete(&domain.PushSubscription{}).Error; err != nil {
				return err
			}
		}
		// Upsert on the (user_id, token) unique index
		sub := domain.PushSubscription{
			UserID:         userID,
			Token:          token,
			TransportClass: transportClass,
			CreatedAt:      time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"transport_class", "created_at"}),
		}).Create(&sub).Error; err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,         // User ID
			"class":   transportClass, // Transport class
		}).Info("Push endpoint registered")
		return nil
	})
}

// Resolve returns all live endpoints for one user. An empty slice is a
// valid, non-error result.
func (r *Registry) Resolve(ctx context.Context, userID uint) ([]domain.PushSubscription, error) {
	var subs []domain.PushSubscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}

// ResolveAll streams every user together with their live endpoints, in
// user id order, without materializing the whole set in memory. Users with
// no registered endpoint are included with an empty slice, so broadcast
// history covers them too. fn returning an error stops the iteration and
// is passed through; the sequence is restartable from the start on the
// next call.
func (r *Registry) ResolveAll(ctx context.Context, fn func(userID uint, subs []domain.PushSubscription) error) error {
	var batch []domain.User
	res := r.db.WithContext(ctx).
		Select("id").
		Order("id").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			// Fetch the batch's endpoints in one query and group per user
			ids := make([]uint, len(batch))
			for i, u := range batch {
				ids[i] = u.ID
			}
			var subs []domain.PushSubscription
			if err := tx.Session(&gorm.Session{NewDB: true}).
				Where("user_id IN ?", ids).
				Find(&subs).Error; err != nil {
				return err
			}
			grouped := make(map[uint][]domain.PushSubscription, len(batch))
			for _, sub := range subs {
				grouped[sub.UserID] = append(grouped[sub.UserID], sub)
			}
			for _, u := range batch {
				if err := fn(u.ID, grouped[u.ID]); err != nil {
					return err
				}
			}
			return nil
		})
	return res.Error
}
