// Package dispatch runs storage and broker operations that are
// correctness-optional for the primary transaction. Jobs are detached from
// the request that spawned them: they run on a background context, their
// failures land in the log, and the caller never waits for them.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Appeals-service/Appeals-service/internal/domain/enums"
)

const defaultJobTimeout = 30 * time.Second

type ObjectStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
}

type Broker interface {
	PublishNotification(ctx context.Context, body []byte) error
	PublishLog(ctx context.Context, body []byte) error
}

// Notification is the JSON payload delivered to the notification queue.
type Notification struct {
	Email    string `json:"email"`
	AppealID int64  `json:"appeal_id"`
	Status   string `json:"status"`
	Comment  string `json:"comment"`
}

type Dispatcher struct {
	storage     ObjectStorage
	broker      Broker
	serviceName string
	timeout     time.Duration
	logger      *zap.Logger
	now         func() time.Time
	wg          sync.WaitGroup
}

func New(storage ObjectStorage, broker Broker, serviceName string, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}

	return &Dispatcher{
		storage:     storage,
		broker:      broker,
		serviceName: serviceName,
		timeout:     defaultJobTimeout,
		logger:      log,
		now:         time.Now,
	}
}

// Submit detaches fn onto a background context scoped by the job timeout.
// A failed job is logged and dropped; delivery is at-most-once.
func (d *Dispatcher) Submit(name string, fn func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			d.logger.Error("background job failed",
				zap.String("job", name),
				zap.Error(err),
			)
		}
	}()
}

// UploadPhotos stores each object independently and concurrently.
func (d *Dispatcher) UploadPhotos(files map[string][]byte) {
	for key, data := range files {
		key, data := key, data
		d.Submit("upload photo "+key, func(ctx context.Context) error {
			if d.storage == nil {
				return errors.New("object storage is not configured")
			}
			contentType := http.DetectContentType(data)
			return d.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
		})
	}
}

func (d *Dispatcher) DeletePhotos(keys []string) {
	for _, key := range keys {
		key := key
		d.Submit("delete photo "+key, func(ctx context.Context) error {
			if d.storage == nil {
				return errors.New("object storage is not configured")
			}
			return d.storage.Remove(ctx, key)
		})
	}
}

func (d *Dispatcher) PublishNotification(n Notification) {
	d.Submit("publish notification", func(ctx context.Context) error {
		if d.broker == nil {
			return errors.New("broker is not configured")
		}
		body, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}
		return d.broker.PublishNotification(ctx, body)
	})
}

// PublishAuditLog formats and ships one audit line to the logs queue.
func (d *Dispatcher) PublishAuditLog(level enums.LogLevel, message string) {
	line := fmt.Sprintf("%s - %s - %s - %s",
		d.now().Format("2006-01-02 15:04:05"), d.serviceName, level, message)

	d.Submit("publish audit log", func(ctx context.Context) error {
		if d.broker == nil {
			return errors.New("broker is not configured")
		}
		return d.broker.PublishLog(ctx, []byte(line))
	})
}

// Close blocks until every detached job has finished.
func (d *Dispatcher) Close() {
	d.wg.Wait()
}
