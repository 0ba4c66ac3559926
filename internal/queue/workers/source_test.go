package workers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docvault/docvault/internal/document"
	"github.com/docvault/docvault/internal/queue"
	"github.com/docvault/docvault/internal/sources"
)

func newSourceWorker() *SourceWorker {
	svc := sources.NewService(
		sources.NewMemoryRepository(),
		sources.NewMemoryLogRepository(),
		nil,
		document.NewMemoryTransformationRepository(),
	)
	return NewSourceWorker(svc)
}

func TestSourceWorkerMalformedPayload(t *testing.T) {
	w := newSourceWorker()
	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeSourceCheck, []byte("{broken")))
	assert.Error(t, err)

	err = w.ProcessTask(context.Background(),
		asynq.NewTask(queue.TypeSourceCheck, mustMarshal(t, queue.SourceCheckPayload{SourceID: "not-a-uuid"})))
	assert.Error(t, err)
}

func TestSourceWorkerDeletedSource(t *testing.T) {
	w := newSourceWorker()
	payload := mustMarshal(t, queue.SourceCheckPayload{SourceID: uuid.NewString()})

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeSourceCheck, payload))
	assert.NoError(t, err, "a source deleted after scheduling is not a task failure")
}

func TestVersionWorkerMalformedPayload(t *testing.T) {
	w := NewVersionWorker(nil)

	err := w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeVersionCreate, []byte("{broken")))
	assert.Error(t, err)

	err = w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeVersionCreate,
		mustMarshal(t, queue.VersionCreatePayload{DocumentID: "not-a-uuid"})))
	assert.Error(t, err)

	err = w.ProcessTask(context.Background(), asynq.NewTask(queue.TypeVersionCreate,
		mustMarshal(t, queue.VersionCreatePayload{DocumentID: uuid.NewString(), Actor: "not-a-uuid"})))
	assert.Error(t, err)
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
