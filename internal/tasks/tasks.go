// Package tasks defines the asynq task types exchanged between the API
// server, the CLI and the background worker.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TypeScrapeArchive fetches fresh reviews for an app and appends them
	// to today's archive batch.
	TypeScrapeArchive = "scrape:archive"

	// TypeCategorizeRun categorizes the archived reviews of one date and
	// records the run in history.
	TypeCategorizeRun = "categorize:run"
)

// Enqueuer is the queue-client surface handlers and commands depend on.
// *asynq.Client satisfies it directly.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

var _ Enqueuer = (*asynq.Client)(nil)

type ScrapeArchivePayload struct {
	AppID string `json:"app_id"`
	Count int    `json:"count"`
}

type CategorizeRunPayload struct {
	Date string `json:"date"`
}

func NewScrapeArchiveTask(appID string, count int) (*asynq.Task, error) {
	payload, err := json.Marshal(ScrapeArchivePayload{AppID: appID, Count: count})
	if err != nil {
		return nil, fmt.Errorf("tasks: encoding scrape payload: %w", err)
	}
	return asynq.NewTask(TypeScrapeArchive, payload), nil
}

func NewCategorizeRunTask(date string) (*asynq.Task, error) {
	payload, err := json.Marshal(CategorizeRunPayload{Date: date})
	if err != nil {
		return nil, fmt.Errorf("tasks: encoding categorize payload: %w", err)
	}
	return asynq.NewTask(TypeCategorizeRun, payload), nil
}
