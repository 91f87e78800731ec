package blobsink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/goliatone/go-overrides/pkg/presets"
)

// DefaultPrefix is the key prefix presets are published under.
const DefaultPrefix = "presets/"

// Catalog is the part of presets.Orchestrator the publisher needs.
type Catalog interface {
	List() []presets.Preset
	Export(id string) (string, bool)
	Import(data []byte) (presets.Preset, error)
}

var _ Catalog = (*presets.Orchestrator)(nil)

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) PublisherOption {
	return func(p *Publisher) {
		prefix = strings.Trim(strings.TrimSpace(prefix), "/")
		if prefix == "" {
			p.prefix = ""
			return
		}
		p.prefix = prefix + "/"
	}
}

// WithLogger routes publisher diagnostics to logger.
func WithLogger(logger logging.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logging.OrNop(logger)
	}
}

// Publisher moves exported presets between a Catalog and a Sink.
type Publisher struct {
	sink    Sink
	catalog Catalog
	prefix  string
	logger  logging.Logger
}

// NewPublisher binds catalog to sink.
func NewPublisher(sink Sink, catalog Catalog, opts ...PublisherOption) *Publisher {
	p := &Publisher{sink: sink, catalog: catalog, prefix: DefaultPrefix, logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Key returns the object key preset id is published under.
func (p *Publisher) Key(id string) string {
	return p.prefix + id + ".json"
}

// Push exports preset id to the sink and returns its key.
func (p *Publisher) Push(ctx context.Context, id string) (string, error) {
	payload, ok := p.catalog.Export(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", presets.ErrPresetNotFound, id)
	}
	key := p.Key(id)
	if err := p.sink.Put(ctx, key, []byte(payload)); err != nil {
		return "", fmt.Errorf("blobsink: push %s: %w", id, err)
	}
	p.logger.Debug("blobsink: preset pushed", "id", id, "key", key)
	return key, nil
}

// PushAll exports every preset. Failures are joined; successful keys are
// still returned.
func (p *Publisher) PushAll(ctx context.Context) ([]string, error) {
	var keys []string
	var errs []error
	for _, preset := range p.catalog.List() {
		key, err := p.Push(ctx, preset.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		keys = append(keys, key)
	}
	return keys, errors.Join(errs...)
}

// Pull imports the preset stored at key. The imported preset gets a fresh
// id.
func (p *Publisher) Pull(ctx context.Context, key string) (presets.Preset, error) {
	payload, err := p.sink.Get(ctx, key)
	if err != nil {
		return presets.Preset{}, fmt.Errorf("blobsink: pull %s: %w", key, err)
	}
	preset, err := p.catalog.Import(payload)
	if err != nil {
		return presets.Preset{}, fmt.Errorf("blobsink: pull %s: %w", key, err)
	}
	return preset, nil
}

// PullAll imports every object under the publisher prefix. Objects that do
// not decode as presets are logged and skipped.
func (p *Publisher) PullAll(ctx context.Context) ([]presets.Preset, error) {
	keys, err := p.sink.List(ctx, p.prefix)
	if err != nil {
		return nil, fmt.Errorf("blobsink: list %q: %w", p.prefix, err)
	}
	imported := make([]presets.Preset, 0, len(keys))
	for _, key := range keys {
		preset, err := p.Pull(ctx, key)
		if err != nil {
			if errors.Is(err, presets.ErrInvalidPreset) {
				p.logger.Warn("blobsink: skipping invalid preset object", "key", key, "error", err)
				continue
			}
			return imported, err
		}
		imported = append(imported, preset)
	}
	return imported, nil
}
