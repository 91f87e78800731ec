// Package hydrate turns JSON request bodies into typed command structs with
// optional normalization and validation hooks.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultMaxBytes caps request bodies read by DecodeReader.
const DefaultMaxBytes = 1 << 20

// ErrEmptyBody is returned when a request carries no JSON object.
var ErrEmptyBody = errors.New("hydrate: empty body")

// Context identifies the request a payload belongs to.
type Context struct {
	Route  string
	Domain string
}

func (c Context) String() string {
	if c.Domain == "" {
		return c.Route
	}
	return c.Route + " (" + c.Domain + ")"
}

// PreHook mutates the raw object before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook validates or normalizes the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts request payloads into T.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	strict    bool
	validate  bool
	maxBytes  int64
}

// WithPreHook runs hook on the raw object before decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook runs hook on the decoded value.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithDisallowUnknownFields rejects fields T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithMaxBytes caps the body size DecodeReader accepts.
func WithMaxBytes[T any](limit int64) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if limit > 0 {
			d.maxBytes = limit
		}
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{maxBytes: DefaultMaxBytes}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// DecodeReader reads one JSON object from r and decodes it.
func (d *Decoder[T]) DecodeReader(ctx Context, r io.Reader) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrEmptyBody
	}
	data, err := io.ReadAll(io.LimitReader(r, d.maxBytes+1))
	if err != nil {
		return zero, fmt.Errorf("hydrate: read %s: %w", ctx, err)
	}
	if int64(len(data)) > d.maxBytes {
		return zero, fmt.Errorf("hydrate: %s body exceeds %d bytes", ctx, d.maxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return zero, ErrEmptyBody
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return zero, fmt.Errorf("hydrate: parse %s: %w", ctx, err)
	}
	return d.Decode(ctx, payload)
}

// Decode converts payload into T applying the configured hooks.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, ErrEmptyBody
	}

	current := payload
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: normalize %s: %w", ctx, err)
		}
		if next != nil {
			current = next
		}
	}

	buffer, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal %s: %w", ctx, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if d.strict {
		decoder.DisallowUnknownFields()
	}
	var result T
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode %s: %w", ctx, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: validate %s: %w", ctx, err)
		}
	}
	if d.validate {
		if err := ValidateStruct(&result); err != nil {
			return zero, fmt.Errorf("hydrate: validate %s: %w", ctx, err)
		}
	}
	return result, nil
}
