package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/docvault/docvault/internal/config"
)

// QueueUploads carries version processing tasks separately from the
// default queue so a burst of interval source checks cannot starve
// interactive uploads.
const QueueUploads = "uploads"

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueVersionCreate schedules processing of uploaded content into a
// document version. A failed attempt is retried with the same content
// key, which the pipeline resolves to the already-created version.
func (c *Client) EnqueueVersionCreate(documentID uuid.UUID, contentKey, comment string, actor *uuid.UUID) error {
	payload := VersionCreatePayload{
		DocumentID: documentID.String(),
		ContentKey: contentKey,
		Comment:    comment,
	}
	if actor != nil {
		payload.Actor = actor.String()
	}
	return c.enqueue(TypeVersionCreate, payload,
		asynq.Queue(QueueUploads), asynq.MaxRetry(3), asynq.Timeout(10*time.Minute))
}

func (c *Client) enqueue(taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
