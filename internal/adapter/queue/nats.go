package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/hexasec/argus/internal/core/ports"
)

const subjectPrefix = "jobs."

func subjectFor(stage ports.Stage) string {
	return subjectPrefix + string(stage)
}

// jobPayload is the wire shape of one stage job.
type jobPayload struct {
	JobID    string `json:"job_id"`
	EntityID string `json:"entity_id"`
}

func encodeJob(handle ports.JobHandle) ([]byte, error) {
	return json.Marshal(jobPayload{
		JobID:    handle.JobID.String(),
		EntityID: handle.EntityID.String(),
	})
}

func decodeJob(data []byte) (jobPayload, error) {
	var payload jobPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return jobPayload{}, fmt.Errorf("failed to unmarshal job payload: %w", err)
	}
	if _, err := uuid.Parse(payload.EntityID); err != nil {
		return jobPayload{}, fmt.Errorf("invalid entity id %q: %w", payload.EntityID, err)
	}
	return payload, nil
}

// Dispatcher publishes stage jobs to NATS subjects, one subject per stage.
type Dispatcher struct {
	nc *nats.Conn
}

func NewDispatcher(nc *nats.Conn) *Dispatcher {
	return &Dispatcher{nc: nc}
}

func (d *Dispatcher) Enqueue(_ context.Context, stage ports.Stage, entityID uuid.UUID) (ports.JobHandle, error) {
	handle := ports.JobHandle{JobID: uuid.New(), Stage: stage, EntityID: entityID}

	data, err := encodeJob(handle)
	if err != nil {
		return ports.JobHandle{}, fmt.Errorf("failed to encode job: %w", err)
	}
	if err := d.nc.Publish(subjectFor(stage), data); err != nil {
		return ports.JobHandle{}, fmt.Errorf("failed to publish %s job: %w", stage, err)
	}
	return handle, nil
}
