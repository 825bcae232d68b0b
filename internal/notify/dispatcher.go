package notify

import (
	"context" // Context for storage and transport calls
	"sync"    // Aggregate counters across workers

	"loyalty_wallet/internal/domain"  // Importing domain models
	"loyalty_wallet/internal/metrics" // Prometheus counters

	"github.com/google/uuid"     // UUID notification IDs
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/sync/errgroup" // Bounded fan-out
	"golang.org/x/time/rate"     // Transport send throttle
	"gorm.io/gorm"               // GORM ORM library
)

// Registry resolves a user's delivery endpoints.
type Registry interface {
	Resolve(ctx context.Context, userID uint) ([]domain.PushSubscription, error)
	ResolveAll(ctx context.Context, fn func(userID uint, subs []domain.PushSubscription) error) error
}

// EndpointResult is the transport outcome for one device endpoint.
type EndpointResult struct {
	Token string // Device token
	Err   error  // nil on successful delivery
}

// DeliveryReport enumerates the per-endpoint outcomes of one NotifyUser
// call. The history record is written regardless, so the report carries
// transport outcomes only.
type DeliveryReport struct {
	UserID     uint             // Target user
	Endpoints  []EndpointResult // One entry per resolved endpoint
	Delivered  int              // Endpoints that accepted the message
	HistoryID  string           // ID of the persisted notification record, empty if the write failed
	ResolveErr error            // Endpoint resolution failure; delivery proceeded with no endpoints
}

// AggregateReport summarizes a broadcast. Callers get counts only; per-user
// detail goes to the operational log.
type AggregateReport struct {
	Attempted int // Distinct users the broadcast reached for
	Delivered int // Users with every endpoint delivered (endpoint-less users count)
	Failed    int // Users with a failed endpoint, failed history write, or failed resolution
}

// Dispatcher fans messages out to a user's devices and records a per-user
// notification history row for every attempt.
type Dispatcher struct {
	db       *gorm.DB      // Notification history storage
	registry Registry      // Endpoint resolution
	sender   Sender        // Push transport
	limiter  *rate.Limiter // Global throttle on transport sends
	workers  int           // Broadcast fan-out width
}

// NewDispatcher wires a dispatcher. sendsPerSecond throttles the push
// provider globally; workers bounds broadcast parallelism.
func NewDispatcher(db *gorm.DB, registry Registry, sender Sender, sendsPerSecond float64, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 8
	}
	return &Dispatcher{
		db:       db,
		registry: registry,
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Limit(sendsPerSecond), int(sendsPerSecond)+1),
		workers:  workers,
	}
}

// NotifyUser resolves the user's endpoints, attempts delivery to each, and
// persists exactly one notification record whatever the transport outcome.
// A per-endpoint failure never aborts delivery to the user's other devices
// and never fails the call.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID uint, title, body, link string) DeliveryReport {
	if link == "" {
		link = "/" // Link defaults to the root path
	}
	report := DeliveryReport{UserID: userID}
	subs, err := d.registry.Resolve(ctx, userID)
	if err != nil {
		// Resolution failure degrades to zero endpoints; the history row
		// below still records the attempt, but the report carries the error
		// so batch callers do not count the user as delivered
		report.ResolveErr = err
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Endpoint resolution failed")
	}
	msg := Message{Title: title, Body: body, Link: link}
	for _, sub := range subs {
		sendErr := d.deliver(ctx, sub.Token, msg)
		report.Endpoints = append(report.Endpoints, EndpointResult{Token: sub.Token, Err: sendErr})
		if sendErr != nil {
			metrics.PushSends.WithLabelValues("error").Inc()
			logrus.WithFields(logrus.Fields{
				"user_id": userID,          // User ID
				"error":   sendErr.Error(), // Transport error
			}).Warn("Push delivery failed")
			continue
		}
		metrics.PushSends.WithLabelValues("ok").Inc()
		report.Delivered++
	}
	// History write is independent of transport success: the record means
	// "we tried to tell you this"
	record := domain.Notification{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
		Body:   body,
		Link:   link,
	}
	if err := d.db.WithContext(ctx).Create(&record).Error; err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Error("Notification history write failed")
	} else {
		report.HistoryID = record.ID
	}
	return report
}

// deliver sends one message under the global throttle.
func (d *Dispatcher) deliver(ctx context.Context, token string, msg Message) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return d.sender.Send(ctx, token, msg)
}

// BroadcastToAll delivers a message to every user with bounded parallelism.
// Individual per-user failures are counted and logged, never abort the
// batch. The returned error covers only top-level iteration failure
// (storage unreachable); the scheduler retries the whole job then.
func (d *Dispatcher) BroadcastToAll(ctx context.Context, title, body, link string) (AggregateReport, error) {
	var (
		mu     sync.Mutex      // Guards report
		report AggregateReport // Aggregate counters
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers) // Bounded fan-out
	err := d.registry.ResolveAll(ctx, func(userID uint, _ []domain.PushSubscription) error {
		g.Go(func() error {
			r := d.NotifyUser(gctx, userID, title, body, link)
			mu.Lock()
			defer mu.Unlock()
			report.Attempted++
			// A user counts as delivered when endpoints resolved, none
			// failed, and the history row was written; endpoint-less users
			// qualify but resolution failures do not
			if r.ResolveErr == nil && r.HistoryID != "" && r.Delivered == len(r.Endpoints) {
				report.Delivered++
			} else {
				report.Failed++
			}
			return nil // Per-user outcomes never abort the broadcast
		})
		return nil
	})
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	if err != nil {
		return report, err
	}
	logrus.WithFields(logrus.Fields{
		"attempted": report.Attempted, // Users reached for
		"delivered": report.Delivered, // Fully delivered users
		"failed":    report.Failed,    // Users with failures
	}).Info("Broadcast completed")
	return report, nil
}
