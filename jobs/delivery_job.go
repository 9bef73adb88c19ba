package jobs

import (
	"context"
	"time"

	"github.com/tellyousomeday/api/services"
	"go.uber.org/zap"
)

// DeliveryJob is the periodic sweep that promotes scheduled messages to
// delivered once their date has passed, whether or not anyone ever reads them.
type DeliveryJob struct {
	service *services.MessageService
	timeout time.Duration
	logger  *zap.Logger
}

func NewDeliveryJob(service *services.MessageService, timeout time.Duration, logger *zap.Logger) *DeliveryJob {
	return &DeliveryJob{service: service, timeout: timeout, logger: logger}
}

// Run executes one sweep. The per-sweep timeout keeps a stalled notification
// from blocking the next cycle; errors are logged, never returned to cron.
func (j *DeliveryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	delivered, err := j.service.DeliverDue(ctx)
	if err != nil {
		j.logger.Error("delivery sweep failed", zap.Error(err))
		return
	}
	if delivered > 0 {
		j.logger.Info("delivery sweep finished",
			zap.Int("delivered", delivered),
			zap.Duration("took", time.Since(start)))
	}
}
