package ports

import (
	"context"

	"github.com/google/uuid"
)

// Stage identifies one of the four pipeline stages.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageExtract   Stage = "extract"
	StageCorrelate Stage = "correlate"
	StageNotify    Stage = "notify"
)

// JobHandle identifies one enqueued unit of pipeline work.
type JobHandle struct {
	JobID    uuid.UUID
	Stage    Stage
	EntityID uuid.UUID
}

// Dispatcher enqueues a stage job for the given entity id. Delivery is
// at-least-once; stage handlers must be idempotent with respect to their
// input id.
type Dispatcher interface {
	Enqueue(ctx context.Context, stage Stage, entityID uuid.UUID) (JobHandle, error)
}
