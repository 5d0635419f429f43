package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/hexasec/argus/internal/core/ports"
	"github.com/hexasec/argus/internal/metrics"
	"github.com/hexasec/argus/internal/pipeline"
)

// StageRunner is implemented by each pipeline stage.
type StageRunner interface {
	Run(ctx context.Context, id uuid.UUID) pipeline.Result
}

type stagePool struct {
	stage  ports.Stage
	runner StageRunner
	size   int
	jobs   chan jobPayload
	sub    *nats.Subscription
}

// Worker queue-subscribes each registered stage subject into its own bounded
// channel consumed by an independently sized goroutine pool, so throttling
// one stage never starves the others. Delivery is treated as at-least-once;
// every stage runner is idempotent with respect to its input id.
type Worker struct {
	nc         *nats.Conn
	queueGroup string
	logger     *slog.Logger
	pools      []*stagePool
	wg         sync.WaitGroup
}

func NewWorker(nc *nats.Conn, queueGroup string, logger *slog.Logger) *Worker {
	return &Worker{nc: nc, queueGroup: queueGroup, logger: logger}
}

// Register adds a stage runner with its own pool size. Must be called before
// Run.
func (w *Worker) Register(stage ports.Stage, runner StageRunner, poolSize int) {
	if poolSize <= 0 {
		poolSize = 1
	}
	w.pools = append(w.pools, &stagePool{
		stage:  stage,
		runner: runner,
		size:   poolSize,
		jobs:   make(chan jobPayload, poolSize*2),
	})
}

// Run subscribes every registered stage, starts the worker pools and blocks
// until the context is cancelled, then drains the subscriptions.
func (w *Worker) Run(ctx context.Context) error {
	for _, pool := range w.pools {
		pool := pool
		sub, err := w.nc.QueueSubscribe(subjectFor(pool.stage), w.queueGroup, func(msg *nats.Msg) {
			payload, err := decodeJob(msg.Data)
			if err != nil {
				w.logger.Error("dropping malformed job", "subject", msg.Subject, "error", err)
				return
			}
			select {
			case pool.jobs <- payload:
			case <-ctx.Done():
			}
		})
		if err != nil {
			w.drain()
			return err
		}
		pool.sub = sub
		w.logger.Info("subscribed to stage",
			"stage", pool.stage, "queue", w.queueGroup, "pool_size", pool.size)

		for i := 0; i < pool.size; i++ {
			w.wg.Add(1)
			go w.runPool(ctx, pool)
		}
	}

	<-ctx.Done()

	w.logger.Info("draining stage subscriptions")
	w.drain()
	w.wg.Wait()
	return nil
}

func (w *Worker) runPool(ctx context.Context, pool *stagePool) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-pool.jobs:
			w.dispatch(ctx, pool, payload)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, pool *stagePool, payload jobPayload) {
	entityID, err := uuid.Parse(payload.EntityID)
	if err != nil {
		w.logger.Error("dropping job with invalid entity id",
			"stage", pool.stage, "entity_id", payload.EntityID, "error", err)
		return
	}

	start := time.Now()
	result := pool.runner.Run(ctx, entityID)
	metrics.RecordJob(string(pool.stage), string(result.Outcome), time.Since(start))

	if result.Success() {
		w.logger.Info("stage completed",
			"stage", pool.stage, "job_id", payload.JobID, "detail", result.Detail)
	} else {
		w.logger.Warn("stage failed",
			"stage", pool.stage, "job_id", payload.JobID,
			"outcome", result.Outcome, "detail", result.Detail)
	}
}

func (w *Worker) drain() {
	for _, pool := range w.pools {
		if pool.sub == nil {
			continue
		}
		if err := pool.sub.Drain(); err != nil {
			w.logger.Error("failed to drain subscription", "stage", pool.stage, "error", err)
		}
	}
}
