package api

import (
	"context"  // Context for job invocations
	"net/http" // HTTP status codes

	"loyalty_wallet/internal/jobs" // Scheduled job entry points

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// JobHandler exposes one scan as a synchronously-invokable trigger
// endpoint. No request body; the route is guarded by the scheduler secret
// middleware. Success returns the aggregate counts; failure returns a
// single error and the external scheduler retries on its next cadence.
func JobHandler(name string, run func(ctx context.Context) (jobs.Report, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := run(c.Request.Context())
		if err != nil {
			// Top-level job failure (storage unreachable, query failed)
			logrus.WithFields(logrus.Fields{
				"job":   name,        // Job kind
				"error": err.Error(), // Failure reason
			}).Error("Job run failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Job failed"})
			return
		}
		logrus.WithFields(logrus.Fields{
			"job":      name,            // Job kind
			"scanned":  report.Scanned,  // Users matched
			"affected": report.Affected, // Users completed
			"failed":   report.Failed,   // Users left for the next run
		}).Info("Job run completed")
		c.JSON(http.StatusOK, report) // Return the summary counts
	}
}
