package sources

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/models"
)

var ErrNotFound = errors.New("source not found")

type Repository interface {
	Create(ctx context.Context, source *models.Source) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Source, error)
	Update(ctx context.Context, source *models.Source) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]models.Source, error)

	// ListInterval returns the enabled interval-driven sources, the
	// ones the scheduler owns a timer for.
	ListInterval(ctx context.Context) ([]models.Source, error)
}

type LogRepository interface {
	Append(ctx context.Context, sourceID uuid.UUID, message string) error
	List(ctx context.Context, sourceID uuid.UUID, limit int) ([]models.SourceLog, error)
}

type MemoryRepository struct {
	mu      sync.RWMutex
	sources map[uuid.UUID]models.Source
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sources: make(map[uuid.UUID]models.Source)}
}

func (r *MemoryRepository) Create(ctx context.Context, source *models.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	r.sources[source.ID] = *source
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &source, nil
}

func (r *MemoryRepository) Update(ctx context.Context, source *models.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[source.ID]; !ok {
		return ErrNotFound
	}
	r.sources[source.ID] = *source
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; !ok {
		return ErrNotFound
	}
	delete(r.sources, id)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]models.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]models.Source, 0, len(r.sources))
	for _, source := range r.sources {
		result = append(result, source)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Label < result[j].Label })
	return result, nil
}

func (r *MemoryRepository) ListInterval(ctx context.Context) ([]models.Source, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var result []models.Source
	for _, source := range all {
		if source.Enabled && !source.Type.Interactive() {
			result = append(result, source)
		}
	}
	return result, nil
}

type MemoryLogRepository struct {
	mu   sync.Mutex
	logs map[uuid.UUID][]models.SourceLog
}

func NewMemoryLogRepository() *MemoryLogRepository {
	return &MemoryLogRepository{logs: make(map[uuid.UUID][]models.SourceLog)}
}

func (r *MemoryLogRepository) Append(ctx context.Context, sourceID uuid.UUID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[sourceID] = append(r.logs[sourceID], models.SourceLog{
		ID:       uuid.New(),
		SourceID: sourceID,
		DateTime: time.Now(),
		Message:  message,
	})
	return nil
}

func (r *MemoryLogRepository) List(ctx context.Context, sourceID uuid.UUID, limit int) ([]models.SourceLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logs := r.logs[sourceID]
	result := make([]models.SourceLog, 0, len(logs))
	for i := len(logs) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		result = append(result, logs[i])
	}
	return result, nil
}
