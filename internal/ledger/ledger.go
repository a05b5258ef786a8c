// Package ledger applies a single logical change to one document of the
// remote store: fetch the current text and version, compute the new text,
// and write it back only if it differs and nobody else wrote in between.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/upsert"
)

const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 30 * time.Second
	DefaultBackoff     = 200 * time.Millisecond
)

var (
	// ErrDocumentAbsent indicates the document does not exist and the
	// mutation cannot create it
	ErrDocumentAbsent = errors.New("document absent")
	// ErrTimeout indicates a remote call exceeded its deadline. Nothing was
	// written; the change can be retried.
	ErrTimeout = errors.New("remote call timed out")
)

// Outcome is the terminal state of a successful Apply
type Outcome int

const (
	Unchanged Outcome = iota
	Created
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Result describes a successful Apply
type Result struct {
	Path     string
	Outcome  Outcome
	Version  blobstore.Version
	Attempts int
}

// Error carries the document and record a failed Apply was working on
type Error struct {
	Op   string // fetch, compute, write
	Path string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Mutation computes the next content of a document. exists is false when
// the document has never been created; current is nil then. Returning
// upsert.ErrNoChange ends the call without a write. message annotates the
// resulting commit.
type Mutation func(current []byte, exists bool) (next []byte, message string, err error)

// Writer runs mutations against a blobstore.Store
type Writer struct {
	store       blobstore.Store
	maxAttempts int
	timeout     time.Duration
	backoff     time.Duration
	logger      *log.Logger
}

// Option configures a Writer
type Option func(*Writer)

// WithMaxAttempts bounds how many fetch-compute-write cycles one Apply runs
func WithMaxAttempts(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithTimeout sets the deadline of every individual remote call
func WithTimeout(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithBackoff sets the base pause before a retry; it grows linearly
func WithBackoff(d time.Duration) Option {
	return func(w *Writer) { w.backoff = d }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// NewWriter creates a writer over store
func NewWriter(store blobstore.Store, opts ...Option) *Writer {
	w := &Writer{
		store:       store,
		maxAttempts: DefaultMaxAttempts,
		timeout:     DefaultTimeout,
		backoff:     DefaultBackoff,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Store returns the underlying store
func (w *Writer) Store() blobstore.Store {
	return w.store
}

// Fetch reads a document under the writer's per-call timeout
func (w *Writer) Fetch(ctx context.Context, path string) (*blobstore.Document, error) {
	var doc *blobstore.Document
	err := w.call(ctx, func(ctx context.Context) error {
		var err error
		doc, err = w.store.Fetch(ctx, path)
		return err
	})
	return doc, err
}

// Apply runs mut against the document at path. key names the record being
// changed and only appears in errors and logs.
//
// A lost race (version conflict on update, or a create beaten by another
// writer) restarts the cycle from a fresh fetch, up to the configured
// number of attempts. Structural errors from mut are returned immediately.
func (w *Writer) Apply(ctx context.Context, path, key string, mut Mutation) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := w.sleep(ctx, attempt); err != nil {
				return nil, &Error{Op: "write", Path: path, Key: key, Err: err}
			}
		}

		res, err := w.cycle(ctx, path, key, mut)
		if err == nil {
			res.Attempts = attempt
			w.logger.Debug("ledger write done", "path", path, "key", key, "outcome", res.Outcome, "attempts", attempt)
			return res, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		w.logger.Debug("lost write race, refetching", "path", path, "key", key, "attempt", attempt, "err", err)
	}

	err := lastErr
	if !errors.Is(err, blobstore.ErrVersionConflict) {
		err = fmt.Errorf("%w: %w", blobstore.ErrVersionConflict, err)
	}
	return nil, &Error{Op: "write", Path: path, Key: key,
		Err: fmt.Errorf("gave up after %d attempts: %w", w.maxAttempts, err)}
}

func retryable(err error) bool {
	return errors.Is(err, blobstore.ErrVersionConflict) || errors.Is(err, blobstore.ErrAlreadyExists)
}

// cycle is one FETCH -> COMPUTE -> WRITE pass
func (w *Writer) cycle(ctx context.Context, path, key string, mut Mutation) (*Result, error) {
	doc, err := w.Fetch(ctx, path)
	exists := true
	if errors.Is(err, blobstore.ErrNotFound) {
		exists = false
	} else if err != nil {
		return nil, &Error{Op: "fetch", Path: path, Key: key, Err: err}
	}

	var current []byte
	if exists {
		current = doc.Content
	}
	next, message, err := mut(current, exists)
	if errors.Is(err, upsert.ErrNoChange) {
		res := &Result{Path: path, Outcome: Unchanged}
		if exists {
			res.Version = doc.Version
		}
		return res, nil
	}
	if err != nil {
		return nil, &Error{Op: "compute", Path: path, Key: key, Err: err}
	}

	var version blobstore.Version
	outcome := Updated
	err = w.call(ctx, func(ctx context.Context) error {
		var err error
		if exists {
			version, err = w.store.Update(ctx, path, message, next, doc.Version)
		} else {
			outcome = Created
			version, err = w.store.Create(ctx, path, message, next)
		}
		return err
	})
	if err != nil {
		return nil, &Error{Op: "write", Path: path, Key: key, Err: err}
	}
	return &Result{Path: path, Outcome: outcome, Version: version}, nil
}

// call runs fn with the per-call deadline and reports an expired deadline
// as ErrTimeout
func (w *Writer) call(ctx context.Context, fn func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, w.timeout, err)
	}
	return err
}

func (w *Writer) sleep(ctx context.Context, attempt int) error {
	if w.backoff <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(w.backoff * time.Duration(attempt-1))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
