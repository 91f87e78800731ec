package overrides

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-overrides/pkg/activity"
	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/goliatone/go-overrides/pkg/storage"
)

// DomainOption configures a Domain or LanguageDomain.
type DomainOption func(*domainConfig)

type domainConfig struct {
	gate    Gate
	custom  bool
	logger  Logger
	emitter *activity.Emitter
	actor   string
}

// WithGate sets the kill switch consulted on every merge. A WatchableGate
// also triggers a re-merge whenever it changes.
func WithGate(gate Gate) DomainOption {
	return func(cfg *domainConfig) {
		if gate != nil {
			cfg.gate = gate
			cfg.custom = true
		}
	}
}

// WithLogger routes warnings (empty names, stale or unknown ids) to logger.
func WithLogger(logger Logger) DomainOption {
	return func(cfg *domainConfig) {
		cfg.logger = logging.OrNop(logger)
	}
}

// WithActivity emits override lifecycle events through emitter.
func WithActivity(emitter *activity.Emitter) DomainOption {
	return func(cfg *domainConfig) {
		cfg.emitter = emitter
	}
}

// WithActor stamps emitted events with actor.
func WithActor(actor string) DomainOption {
	return func(cfg *domainConfig) {
		cfg.actor = strings.TrimSpace(actor)
	}
}

func newDomainConfig(opts []DomainOption) domainConfig {
	cfg := domainConfig{gate: AlwaysOn, logger: logging.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Domain is one multi-option configuration domain: the host's registered
// options, the developer's forced partition and the merged result. All
// methods are safe for concurrent use. Streams replay their latest value to
// new subscribers, and subscribers may call back into the Domain.
type Domain struct {
	kind Kind
	cfg  domainConfig

	mu       sync.Mutex
	version  uint64
	registry *Registry
	store    *OverrideStore

	options *Observable[[]Option]
	state   *Observable[ForcedState]
	all     *Observable[[]EffectiveOption]
	forced  *Observable[[]EffectiveOption]

	unwatch func()
}

type domainSnapshot struct {
	version uint64
	options []Option
	state   ForcedState
	all     []EffectiveOption
	forced  []EffectiveOption
}

// NewDomain builds a domain for kind, loading any persisted partition from
// adapter. A nil adapter keeps overrides in memory only.
func NewDomain(kind Kind, adapter *storage.Adapter, opts ...DomainOption) *Domain {
	cfg := newDomainConfig(opts)
	d := &Domain{
		kind:     kind,
		cfg:      cfg,
		registry: NewRegistry(kind, cfg.logger),
		store:    NewOverrideStore(kind, adapter, cfg.logger),
	}
	snap := d.snapshotLocked()
	d.options = NewObservable(snap.options, cloneOptions)
	d.state = NewObservable(snap.state, ForcedState.Clone)
	d.all = NewObservable(snap.all, cloneEffective)
	d.forced = NewObservable(snap.forced, cloneEffective)

	if watchable, ok := cfg.gate.(WatchableGate); ok {
		d.unwatch = watchable.Subscribe(func(bool) { d.Refresh() })
	}
	return d
}

// Kind returns the domain identifier.
func (d *Domain) Kind() Kind {
	return d.kind
}

// SetAvailableOptions replaces the registered options. Invalid lists are
// rejected with a *ValidationError and leave the domain untouched. Overrides
// for ids that are no longer registered are removed and persisted.
func (d *Domain) SetAvailableOptions(options []Option) error {
	d.mu.Lock()
	registered, err := d.registry.SetOptions(options)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	pruned := d.store.Prune(d.registry.ValidIDs())
	snap := d.bumpLocked()
	d.mu.Unlock()

	d.options.publishAt(snap.version, snap.options)
	if len(pruned) > 0 {
		d.state.publishAt(snap.version, snap.state)
	}
	d.publishValues(snap)

	events := []activity.Event{activity.BuildOptionsRegisteredEvent(d.eventInput("", nil, nil, len(registered)))}
	if len(pruned) > 0 {
		events = append(events, activity.BuildOverridesPrunedEvent(d.eventInput("", nil, pruned, len(pruned))))
	}
	d.emit(events...)
	return nil
}

// Options returns a copy of the registered options.
func (d *Domain) Options() []Option {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.Options()
}

// OptionsStream emits the registered list on every SetAvailableOptions.
func (d *Domain) OptionsStream() Stream[[]Option] {
	return d.options
}

// StateStream emits the forced partition whenever it changes.
func (d *Domain) StateStream() Stream[ForcedState] {
	return d.state
}

// AllValues emits every registered option with overrides applied.
func (d *Domain) AllValues() Stream[[]EffectiveOption] {
	return d.all
}

// ForcedValues emits only the forced options. It is empty while the gate
// is disabled.
func (d *Domain) ForcedValues() Stream[[]EffectiveOption] {
	return d.forced
}

// SetOverride forces id to value. Empty ids are ignored.
func (d *Domain) SetOverride(id string, value bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		d.cfg.logger.Warn("overrides: ignoring override with empty id", "domain", string(d.kind))
		return
	}
	d.mu.Lock()
	changed := d.store.Set(id, value)
	if !changed {
		d.mu.Unlock()
		return
	}
	snap := d.bumpLocked()
	d.mu.Unlock()

	d.publishState(snap)
	d.emit(activity.BuildOverrideForcedEvent(d.eventInput(id, &value, nil, 0)))
}

// ClearOverride returns id to its natural value.
func (d *Domain) ClearOverride(id string) {
	id = strings.TrimSpace(id)
	d.mu.Lock()
	if !d.store.Clear(id) {
		d.mu.Unlock()
		return
	}
	snap := d.bumpLocked()
	d.mu.Unlock()

	d.publishState(snap)
	d.emit(activity.BuildOverrideClearedEvent(d.eventInput(id, nil, nil, 0)))
}

// ApplyState replaces the whole partition. Ids that are not currently
// registered are dropped with a warning and returned.
func (d *Domain) ApplyState(state ForcedState) []string {
	d.mu.Lock()
	dropped := d.store.Replace(state, d.registry.ValidIDs())
	snap := d.bumpLocked()
	d.mu.Unlock()

	d.publishState(snap)
	d.emit(activity.BuildStateAppliedEvent(d.eventInput("", nil, dropped, snap.state.Len())))
	return dropped
}

// CurrentState returns a copy of the stored partition. It is unaffected by
// the gate.
func (d *Domain) CurrentState() ForcedState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Current()
}

// ClearAll drops every override of the domain.
func (d *Domain) ClearAll() {
	d.mu.Lock()
	before := d.store.Current().Len()
	if !d.store.Reset() {
		d.mu.Unlock()
		return
	}
	snap := d.bumpLocked()
	d.mu.Unlock()

	d.publishState(snap)
	d.emit(activity.BuildOverridesResetEvent(d.eventInput("", nil, nil, before)))
}

// Refresh re-merges against the current gate position.
func (d *Domain) Refresh() {
	d.mu.Lock()
	snap := d.bumpLocked()
	d.mu.Unlock()
	d.publishValues(snap)
}

// GateEnabled reports the gate's current position.
func (d *Domain) GateEnabled() bool {
	return d.cfg.gate.Enabled()
}

// Close detaches the domain from a watchable gate.
func (d *Domain) Close() {
	d.mu.Lock()
	unwatch := d.unwatch
	d.unwatch = nil
	d.mu.Unlock()
	if unwatch != nil {
		unwatch()
	}
}

func (d *Domain) bumpLocked() domainSnapshot {
	d.version++
	return d.snapshotLocked()
}

func (d *Domain) snapshotLocked() domainSnapshot {
	options := d.registry.Options()
	state := d.store.Current()
	var all []EffectiveOption
	if d.cfg.gate.Enabled() {
		all = Merge(options, state)
	} else {
		all = Natural(options)
	}
	return domainSnapshot{
		version: d.version,
		options: options,
		state:   state,
		all:     all,
		forced:  ForcedOnly(all),
	}
}

func (d *Domain) publishState(snap domainSnapshot) {
	d.state.publishAt(snap.version, snap.state)
	d.publishValues(snap)
}

func (d *Domain) publishValues(snap domainSnapshot) {
	d.all.publishAt(snap.version, snap.all)
	d.forced.publishAt(snap.version, snap.forced)
}

func (d *Domain) eventInput(id string, value *bool, removed []string, count int) activity.OverrideEventInput {
	return activity.OverrideEventInput{
		ActorID:  d.cfg.actor,
		Domain:   string(d.kind),
		OptionID: id,
		Value:    value,
		Removed:  removed,
		Count:    count,
	}
}

func (d *Domain) emit(events ...activity.Event) {
	if !d.cfg.emitter.Enabled() {
		return
	}
	if err := d.cfg.emitter.EmitAll(context.Background(), events...); err != nil {
		d.cfg.logger.Warn("overrides: activity hook failed", "domain", string(d.kind), "error", err)
	}
}
