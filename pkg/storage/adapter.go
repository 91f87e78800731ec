package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/goliatone/go-overrides/pkg/logging"
)

// DefaultNamespace prefixes every key written by an Adapter unless
// WithNamespace overrides it.
const DefaultNamespace = "dev-toolbar"

const defaultTimeout = 5 * time.Second

// Adapter is a namespaced JSON view over a Backend.
type Adapter struct {
	backend   Backend
	namespace string
	logger    logging.Logger
	timeout   time.Duration
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithNamespace sets the key prefix. Empty values are ignored.
func WithNamespace(namespace string) AdapterOption {
	return func(a *Adapter) {
		if ns := strings.TrimSpace(namespace); ns != "" {
			a.namespace = ns
		}
	}
}

// WithLogger routes read/write failures to logger.
func WithLogger(logger logging.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logging.OrNop(logger)
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(timeout time.Duration) AdapterOption {
	return func(a *Adapter) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// NewAdapter wraps backend. A nil backend falls back to a MemoryBackend.
func NewAdapter(backend Backend, opts ...AdapterOption) *Adapter {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	a := &Adapter{
		backend:   backend,
		namespace: DefaultNamespace,
		logger:    logging.Nop(),
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// NewMemoryAdapter is shorthand for an Adapter over a fresh MemoryBackend.
func NewMemoryAdapter(opts ...AdapterOption) *Adapter {
	return NewAdapter(NewMemoryBackend(), opts...)
}

// Namespace returns the configured key prefix.
func (a *Adapter) Namespace() string {
	return a.namespace
}

// Backend exposes the wrapped backend.
func (a *Adapter) Backend() Backend {
	return a.backend
}

func (a *Adapter) prefix() string {
	return a.namespace + ":"
}

// Key returns the namespaced backend key for key.
func (a *Adapter) Key(key string) string {
	return a.prefix() + key
}

func (a *Adapter) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}

// Write encodes value as JSON and stores it synchronously. Failures are logged
// and reported through the return value; callers are free to ignore it.
func (a *Adapter) Write(key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		a.logger.Error("storage: encode failed", "key", key, "error", err)
		return err
	}
	ctx, cancel := a.context()
	defer cancel()
	if err := a.backend.Put(ctx, a.Key(key), payload); err != nil {
		a.logger.Error("storage: write failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Read decodes the stored value for key into dst. It returns false when the
// key is missing, the backend fails or the payload is not valid JSON for dst.
func (a *Adapter) Read(key string, dst any) bool {
	payload, ok := a.ReadRaw(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		a.logger.Warn("storage: corrupt entry ignored", "key", key, "error", err)
		return false
	}
	return true
}

// ReadRaw returns the stored JSON payload for key.
func (a *Adapter) ReadRaw(key string) (json.RawMessage, bool) {
	ctx, cancel := a.context()
	defer cancel()
	payload, ok, err := a.backend.Get(ctx, a.Key(key))
	if err != nil {
		a.logger.Warn("storage: read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok || len(payload) == 0 {
		return nil, false
	}
	if !json.Valid(payload) {
		a.logger.Warn("storage: corrupt entry ignored", "key", key)
		return nil, false
	}
	return json.RawMessage(payload), true
}

// Delete removes key. Failures are logged.
func (a *Adapter) Delete(key string) error {
	ctx, cancel := a.context()
	defer cancel()
	if err := a.backend.Delete(ctx, a.Key(key)); err != nil {
		a.logger.Error("storage: delete failed", "key", key, "error", err)
		return err
	}
	return nil
}

// ReadAll returns every valid entry under the namespace keyed by its
// un-prefixed key.
func (a *Adapter) ReadAll() map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	for _, key := range a.keys() {
		if payload, ok := a.ReadRaw(key); ok {
			out[key] = payload
		}
	}
	return out
}

// WriteAll stores every entry in values. Entries are written independently;
// one failing key does not stop the others.
func (a *Adapter) WriteAll(values map[string]json.RawMessage) error {
	var firstErr error
	for key, payload := range values {
		if !json.Valid(payload) {
			a.logger.Warn("storage: skipping invalid payload", "key", key)
			continue
		}
		ctx, cancel := a.context()
		err := a.backend.Put(ctx, a.Key(key), []byte(payload))
		cancel()
		if err != nil {
			a.logger.Error("storage: write failed", "key", key, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// ClearAll deletes every key under the namespace and nothing else.
func (a *Adapter) ClearAll() error {
	var firstErr error
	for _, key := range a.keys() {
		if err := a.Delete(key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *Adapter) keys() []string {
	ctx, cancel := a.context()
	defer cancel()
	full, err := a.backend.Keys(ctx, a.prefix())
	if err != nil {
		a.logger.Warn("storage: list failed", "error", err)
		return nil
	}
	keys := make([]string, 0, len(full))
	for _, key := range full {
		if strings.HasPrefix(key, a.prefix()) {
			keys = append(keys, strings.TrimPrefix(key, a.prefix()))
		}
	}
	return keys
}
