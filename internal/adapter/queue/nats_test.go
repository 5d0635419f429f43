package queue

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexasec/argus/internal/core/ports"
)

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "jobs.fetch", subjectFor(ports.StageFetch))
	assert.Equal(t, "jobs.notify", subjectFor(ports.StageNotify))
}

func TestJobCodec(t *testing.T) {
	handle := ports.JobHandle{JobID: uuid.New(), Stage: ports.StageExtract, EntityID: uuid.New()}

	data, err := encodeJob(handle)
	require.NoError(t, err)

	payload, err := decodeJob(data)
	require.NoError(t, err)
	assert.Equal(t, handle.JobID.String(), payload.JobID)
	assert.Equal(t, handle.EntityID.String(), payload.EntityID)
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	_, err := decodeJob([]byte("not json"))
	assert.Error(t, err)

	_, err = decodeJob([]byte(`{"job_id":"x","entity_id":"not-a-uuid"}`))
	assert.Error(t, err)
}
