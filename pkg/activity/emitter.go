package activity

import (
	"context"
	"errors"
	"strings"
)

// DefaultChannel is stamped on events emitted without a channel.
const DefaultChannel = "overrides"

// Config sets emission defaults. Tenant is stamped on events that carry
// none, so one toolbar maps onto one go-users tenant.
type Config struct {
	Enabled bool
	Channel string
	Tenant  string
}

// Emitter stamps defaults on events and hands them to its hooks. A nil
// *Emitter is valid and emits nothing.
type Emitter struct {
	hooks   Hooks
	channel string
	tenant  string
}

func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{
		channel: strings.TrimSpace(cfg.Channel),
		tenant:  strings.TrimSpace(cfg.Tenant),
	}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	if cfg.Enabled {
		for _, hook := range hooks {
			if hook != nil {
				e.hooks = append(e.hooks, hook)
			}
		}
	}
	return e
}

func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.TenantID) == "" {
		event.TenantID = e.tenant
	}
	return e.hooks.Notify(ctx, event)
}

// EmitAll emits events in order and joins the failures.
func (e *Emitter) EmitAll(ctx context.Context, events ...Event) error {
	if !e.Enabled() {
		return nil
	}
	var errs []error
	for _, event := range events {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
