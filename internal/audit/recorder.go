// Package audit persists one row per executed outgoing request.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/af-corp/reqbridge/internal/engine"
	"github.com/af-corp/reqbridge/internal/hooks"
	"github.com/af-corp/reqbridge/internal/host"
	"github.com/af-corp/reqbridge/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the recorder uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Entry is one request_log row.
type Entry struct {
	ID         uuid.UUID
	URL        string
	Method     string
	StatusCode int
	Redirects  int
	Stream     bool
	Error      string
	CreatedAt  time.Time
}

const insertEntry = `
INSERT INTO request_log (id, url, method, status_code, redirects, stream, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Recorder writes entries for every http_api_debug event. Writes happen in
// the background so requests are never slowed down by the database.
type Recorder struct {
	db      DB
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

func NewRecorder(db DB, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Recorder{db: db, timeout: timeout, now: time.Now}
}

// Subscribe attaches the recorder to the host's http_api_debug action.
func (r *Recorder) Subscribe(reg *hooks.Registry) {
	reg.AddAction(host.ActionHTTPAPIDebug, r.onDebug, hooks.DefaultPriority)
}

func (r *Recorder) onDebug(_ context.Context, e *hooks.Event) {
	entry := r.entryFrom(e)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.Record(ctx, entry); err != nil {
			slog.Warn("audit write failed", "url", entry.URL, "error", err)
		}
	}()
}

// Record inserts entry.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r.db == nil {
		return nil
	}
	var errText *string
	if entry.Error != "" {
		errText = &entry.Error
	}
	_, err := r.db.Exec(ctx, insertEntry,
		entry.ID, entry.URL, entry.Method, entry.StatusCode,
		entry.Redirects, entry.Stream, errText, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request_log: %w", err)
	}
	return nil
}

// Wait blocks until pending writes finish.
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// entryFrom reads the http_api_debug arguments: the engine response or
// error, the context, the transport name, the request args and the URL.
func (r *Recorder) entryFrom(e *hooks.Event) Entry {
	entry := Entry{ID: uuid.New(), CreatedAt: r.now().UTC()}

	switch v := e.Arg(0).(type) {
	case *engine.Response:
		entry.StatusCode = v.StatusCode
		entry.Redirects = v.Redirects
	case error:
		entry.Error = v.Error()
		var engErr *engine.Error
		if errors.As(v, &engErr) && engErr.URL != "" {
			entry.URL = engErr.URL
		}
	}
	if args, ok := e.Arg(3).(types.RequestArgs); ok {
		entry.Method = args.Method
		entry.Stream = args.Stream
		if entry.URL == "" {
			entry.URL = args.URL
		}
	}
	if url, ok := e.Arg(4).(string); ok && url != "" {
		entry.URL = url
	}
	return entry
}
