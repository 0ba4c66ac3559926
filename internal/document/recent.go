package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/docvault/docvault/internal/models"
)

// RecentDocuments keeps a bounded most-recently-accessed list per user
// in a redis sorted set scored by access time. Entries beyond the
// capacity are evicted oldest-first.
type RecentDocuments struct {
	client *redis.Client
	max    int
}

func NewRecentDocuments(client *redis.Client, max int) *RecentDocuments {
	return &RecentDocuments{client: client, max: max}
}

func recentKey(userID uuid.UUID) string {
	return fmt.Sprintf("recent-documents:%s", userID)
}

// Add records an access, moving the document to the head of the user's
// list and trimming past capacity.
func (r *RecentDocuments) Add(ctx context.Context, userID, documentID uuid.UUID) error {
	key := recentKey(userID)
	now := time.Now()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: documentID.String()})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-(r.max + 1)))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record recent document: %w", err)
	}
	return nil
}

// List returns the user's recent documents, most recent first.
func (r *RecentDocuments) List(ctx context.Context, userID uuid.UUID) ([]models.RecentDocument, error) {
	entries, err := r.client.ZRevRangeWithScores(ctx, recentKey(userID), 0, int64(r.max-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent documents: %w", err)
	}

	result := make([]models.RecentDocument, 0, len(entries))
	for _, entry := range entries {
		documentID, err := uuid.Parse(entry.Member.(string))
		if err != nil {
			continue
		}
		result = append(result, models.RecentDocument{
			UserID:           userID,
			DocumentID:       documentID,
			DateTimeAccessed: time.Unix(0, int64(entry.Score)),
		})
	}
	return result, nil
}

// Remove drops a document from the user's list, for documents that no
// longer exist.
func (r *RecentDocuments) Remove(ctx context.Context, userID, documentID uuid.UUID) error {
	if err := r.client.ZRem(ctx, recentKey(userID), documentID.String()).Err(); err != nil {
		return fmt.Errorf("remove recent document: %w", err)
	}
	return nil
}
