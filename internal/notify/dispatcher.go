package notify

import (
	"context"
	"time"

	"investment-bot/internal/monitoring"
	"investment-bot/internal/worker"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const deliveryTimeout = 15 * time.Second

// Dispatcher hands payloads to a worker pool which delivers them in the
// background.
type Dispatcher struct {
	pool      *worker.Pool
	deliverer Deliverer
	logger    *zap.Logger
}

func NewDispatcher(pool *worker.Pool, deliverer Deliverer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		deliverer: deliverer,
		logger:    logger.Named("notify"),
	}
}

type deliveryTask struct {
	ctx       context.Context
	userID    int64
	payload   Payload
	deliverer Deliverer
	logger    *zap.Logger
}

func (t *deliveryTask) Execute() {
	ctx, cancel := context.WithTimeout(t.ctx, deliveryTimeout)
	defer cancel()
	deliver(ctx, t.deliverer, t.userID, t.payload, t.logger)
}

// Notify queues a delivery. It never blocks on a full queue.
func (d *Dispatcher) Notify(ctx context.Context, userID int64, payload Payload) {
	stamp(&payload)
	task := &deliveryTask{
		ctx:       context.WithoutCancel(ctx),
		userID:    userID,
		payload:   payload,
		deliverer: d.deliverer,
		logger:    d.logger,
	}
	if err := d.pool.TryExec(task); err != nil {
		monitoring.NotificationsTotal.WithLabelValues(string(payload.Kind), "dropped").Inc()
		d.logger.Warn("notification dropped",
			zap.String("kind", string(payload.Kind)),
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

func stamp(payload *Payload) {
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	if payload.CreatedAt.IsZero() {
		payload.CreatedAt = time.Now()
	}
}

func deliver(ctx context.Context, d Deliverer, userID int64, payload Payload, logger *zap.Logger) error {
	if err := d.Deliver(ctx, userID, payload); err != nil {
		monitoring.NotificationsTotal.WithLabelValues(string(payload.Kind), "failed").Inc()
		logger.Error("notification delivery failed",
			zap.String("id", payload.ID),
			zap.String("kind", string(payload.Kind)),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return err
	}
	monitoring.NotificationsTotal.WithLabelValues(string(payload.Kind), "delivered").Inc()
	return nil
}
