// Package blobsink publishes exported presets to blob storage so they can be
// shared between machines. Sinks store opaque payloads by key; Publisher
// wires them to a presets.Orchestrator.
package blobsink

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when key has no payload.
var ErrNotFound = errors.New("blobsink: object not found")

// Sink stores payloads by key.
type Sink interface {
	Put(ctx context.Context, key string, payload []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return "", fmt.Errorf("blobsink: empty key")
	case strings.Contains(key, ".."):
		return "", fmt.Errorf("blobsink: invalid key %q", key)
	case strings.HasPrefix(key, "/"):
		return "", fmt.Errorf("blobsink: absolute key %q", key)
	}
	return key, nil
}
