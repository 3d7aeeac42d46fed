package telegram

import (
	"context"
	"time"

	"investment-bot/internal/worker"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"go.uber.org/zap"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second

	laneQueue = 64
)

// MessageRouter handles one incoming message
type MessageRouter interface {
	Route(ctx context.Context, msg *gotgbot.Message)
}

// Poller long-polls getUpdates and hands every message to the router.
// Each user is pinned to one single-worker lane, so a user's updates run
// in arrival order while different users proceed in parallel.
type Poller struct {
	api     API
	router  MessageRouter
	timeout time.Duration
	lanes   []*worker.Pool
	logger  *zap.Logger
}

func NewPoller(api API, router MessageRouter, timeout time.Duration, lanes int, logger *zap.Logger) *Poller {
	if lanes < 1 {
		lanes = 1
	}
	p := &Poller{
		api:     api,
		router:  router,
		timeout: timeout,
		lanes:   make([]*worker.Pool, lanes),
		logger:  logger.Named("poller"),
	}
	for i := range p.lanes {
		p.lanes[i] = worker.NewPool(1, laneQueue)
	}
	return p
}

// Run polls until ctx is cancelled, then waits for queued updates
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("starting long polling", zap.Duration("timeout", p.timeout), zap.Int("lanes", len(p.lanes)))
	defer p.drain()

	// queued updates still finish after shutdown starts
	handleCtx := context.WithoutCancel(ctx)

	var offset int64
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			p.logger.Info("stopping long polling")
			return
		}

		updates, err := p.api.GetUpdates(&gotgbot.GetUpdatesOpts{
			Offset:         offset,
			Timeout:        int64(p.timeout / time.Second),
			AllowedUpdates: []string{"message"},
			RequestOpts:    &gotgbot.RequestOpts{Timeout: p.timeout + 10*time.Second},
		})
		if err != nil {
			p.logger.Warn("getUpdates failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				continue
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = minBackoff

		for i := range updates {
			offset = updates[i].UpdateId + 1
			p.Dispatch(handleCtx, &updates[i])
		}
	}
}

// Dispatch queues update on its sender's lane, blocking while that lane is full
func (p *Poller) Dispatch(ctx context.Context, update *gotgbot.Update) {
	if update.Message == nil {
		return
	}
	msg := update.Message
	task := worker.TaskFunc(func() { p.handle(ctx, update.UpdateId, msg) })
	if err := p.laneFor(msg).Exec(task); err != nil {
		p.logger.Warn("update dropped", zap.Int64("update_id", update.UpdateId), zap.Error(err))
	}
}

func (p *Poller) laneFor(msg *gotgbot.Message) *worker.Pool {
	key := msg.Chat.Id
	if msg.From != nil {
		key = msg.From.Id
	}
	if key < 0 {
		key = -key
	}
	return p.lanes[key%int64(len(p.lanes))]
}

func (p *Poller) drain() {
	for _, lane := range p.lanes {
		lane.Close()
	}
	for _, lane := range p.lanes {
		lane.Wait()
	}
}

func (p *Poller) handle(ctx context.Context, updateID int64, msg *gotgbot.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("panic while handling update", zap.Int64("update_id", updateID), zap.Any("panic", rec))
		}
	}()
	p.router.Route(ctx, msg)
}
