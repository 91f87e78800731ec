package overrides

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-overrides/pkg/activity"
	"github.com/goliatone/go-overrides/pkg/storage"
)

// LanguageOverride is the persisted record of the forced language.
type LanguageOverride struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LanguageDomain is the single-value domain: at most one language can be
// forced at a time and both value streams emit a list of zero or one items.
type LanguageDomain struct {
	cfg     domainConfig
	adapter *storage.Adapter

	mu       sync.Mutex
	version  uint64
	registry *Registry
	forced   *LanguageOverride
	ready    chan struct{}

	options     *Observable[[]Option]
	all         *Observable[[]EffectiveOption]
	forcedValue *Observable[[]EffectiveOption]

	unwatch func()
}

type languageSnapshot struct {
	version uint64
	options []Option
	all     []EffectiveOption
	forced  []EffectiveOption
}

// NewLanguageDomain loads the persisted language override, if any.
func NewLanguageDomain(adapter *storage.Adapter, opts ...DomainOption) *LanguageDomain {
	cfg := newDomainConfig(opts)
	d := &LanguageDomain{
		cfg:      cfg,
		adapter:  adapter,
		registry: NewRegistry(KindLanguage, cfg.logger),
		ready:    make(chan struct{}),
	}
	d.load()
	snap := d.snapshotLocked()
	d.options = NewObservable(snap.options, cloneOptions)
	d.all = NewObservable(snap.all, cloneEffective)
	d.forcedValue = NewObservable(snap.forced, cloneEffective)

	if watchable, ok := cfg.gate.(WatchableGate); ok {
		d.unwatch = watchable.Subscribe(func(bool) { d.Refresh() })
	}
	return d
}

func (d *LanguageDomain) load() {
	if d.adapter == nil {
		return
	}
	var stored LanguageOverride
	if !d.adapter.Read(KindLanguage.StorageKey(), &stored) {
		return
	}
	if strings.TrimSpace(stored.ID) == "" {
		d.cfg.logger.Warn("overrides: ignoring malformed stored language")
		return
	}
	d.forced = &stored
}

// Kind returns KindLanguage.
func (d *LanguageDomain) Kind() Kind {
	return KindLanguage
}

// SetAvailableOptions replaces the registered languages. A forced language
// that is no longer registered is cleared.
func (d *LanguageDomain) SetAvailableOptions(options []Option) error {
	d.mu.Lock()
	registered, err := d.registry.SetOptions(options)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	var pruned []string
	if d.forced != nil {
		if option, ok := d.registry.Lookup(d.forced.ID); !ok {
			pruned = []string{d.forced.ID}
			d.cfg.logger.Warn("overrides: removed stale overrides", "domain", string(KindLanguage), "ids", pruned)
			d.persistLocked(nil)
		} else if option.Name != d.forced.Name {
			d.persistLocked(&LanguageOverride{ID: option.ID, Name: option.Name})
		}
	}
	d.markReadyLocked()
	snap := d.bumpLocked()
	d.mu.Unlock()

	d.options.publishAt(snap.version, snap.options)
	d.publishValues(snap)

	events := []activity.Event{activity.BuildOptionsRegisteredEvent(d.eventInput("", nil, nil, len(registered)))}
	if len(pruned) > 0 {
		events = append(events, activity.BuildOverridesPrunedEvent(d.eventInput("", nil, pruned, 1)))
	}
	d.emit(events...)
	return nil
}

// Options returns a copy of the registered languages.
func (d *LanguageDomain) Options() []Option {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.Options()
}

// OptionsStream emits the registered languages on every registration.
func (d *LanguageDomain) OptionsStream() Stream[[]Option] {
	return d.options
}

// AllValues emits the active language: the forced one when set, otherwise
// the first naturally enabled option.
func (d *LanguageDomain) AllValues() Stream[[]EffectiveOption] {
	return d.all
}

// ForcedValues emits the forced language, or nothing.
func (d *LanguageDomain) ForcedValues() Stream[[]EffectiveOption] {
	return d.forcedValue
}

// SetLanguage forces id. The id must be registered.
func (d *LanguageDomain) SetLanguage(id string) error {
	id = strings.TrimSpace(id)
	d.mu.Lock()
	option, ok := d.registry.Lookup(id)
	if !ok {
		d.mu.Unlock()
		return &ValidationError{Domain: KindLanguage, Index: -1, OptionID: id, Err: ErrUnknownOption}
	}
	if d.forced != nil && d.forced.ID == id {
		d.mu.Unlock()
		return nil
	}
	d.persistLocked(&LanguageOverride{ID: option.ID, Name: option.Name})
	snap := d.bumpLocked()
	d.mu.Unlock()

	d.publishValues(snap)
	value := true
	d.emit(activity.BuildOverrideForcedEvent(d.eventInput(id, &value, nil, 0)))
	return nil
}

// ClearLanguage removes the forced language.
func (d *LanguageDomain) ClearLanguage() {
	d.mu.Lock()
	if d.forced == nil {
		d.mu.Unlock()
		return
	}
	id := d.forced.ID
	d.persistLocked(nil)
	snap := d.bumpLocked()
	d.mu.Unlock()

	d.publishValues(snap)
	d.emit(activity.BuildOverrideClearedEvent(d.eventInput(id, nil, nil, 0)))
}

// ForcedLanguage returns the forced language id. It ignores the gate.
func (d *LanguageDomain) ForcedLanguage() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.forced == nil {
		return "", false
	}
	return d.forced.ID, true
}

// Ready is closed once languages have been registered.
func (d *LanguageDomain) Ready() <-chan struct{} {
	return d.ready
}

// ApplyLanguage replaces the forced language with id, or clears it when id
// is nil. It waits for the first registration so the id can be checked
// against the registered languages; an unknown id clears the override with a
// warning. The wait honors ctx.
func (d *LanguageDomain) ApplyLanguage(ctx context.Context, id *string) error {
	if id == nil {
		d.ClearLanguage()
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-d.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	target := strings.TrimSpace(*id)
	d.mu.Lock()
	_, known := d.registry.Lookup(target)
	d.mu.Unlock()
	if !known {
		d.cfg.logger.Warn("overrides: ignoring unknown ids in applied state",
			"domain", string(KindLanguage), "ids", []string{target})
		d.ClearLanguage()
		return nil
	}
	return d.SetLanguage(target)
}

// Refresh re-merges against the current gate position.
func (d *LanguageDomain) Refresh() {
	d.mu.Lock()
	snap := d.bumpLocked()
	d.mu.Unlock()
	d.publishValues(snap)
}

// Close detaches the domain from a watchable gate.
func (d *LanguageDomain) Close() {
	d.mu.Lock()
	unwatch := d.unwatch
	d.unwatch = nil
	d.mu.Unlock()
	if unwatch != nil {
		unwatch()
	}
}

func (d *LanguageDomain) markReadyLocked() {
	select {
	case <-d.ready:
	default:
		close(d.ready)
	}
}

func (d *LanguageDomain) persistLocked(next *LanguageOverride) {
	d.forced = next
	if d.adapter == nil {
		return
	}
	if next == nil {
		_ = d.adapter.Delete(KindLanguage.StorageKey())
		return
	}
	_ = d.adapter.Write(KindLanguage.StorageKey(), next)
}

func (d *LanguageDomain) bumpLocked() languageSnapshot {
	d.version++
	return d.snapshotLocked()
}

func (d *LanguageDomain) snapshotLocked() languageSnapshot {
	options := d.registry.Options()
	snap := languageSnapshot{version: d.version, options: options, all: []EffectiveOption{}, forced: []EffectiveOption{}}

	if d.forced != nil && d.cfg.gate.Enabled() {
		if option, ok := d.registry.Lookup(d.forced.ID); ok {
			effective := EffectiveOption{
				ID:            option.ID,
				Name:          option.Name,
				Description:   option.Description,
				IsEnabled:     true,
				IsForced:      true,
				OriginalValue: boolPtr(option.NaturalValue),
			}
			snap.all = []EffectiveOption{effective}
			snap.forced = []EffectiveOption{effective}
			return snap
		}
	}
	for _, option := range options {
		if option.NaturalValue {
			snap.all = []EffectiveOption{{
				ID:          option.ID,
				Name:        option.Name,
				Description: option.Description,
				IsEnabled:   true,
			}}
			break
		}
	}
	return snap
}

func (d *LanguageDomain) publishValues(snap languageSnapshot) {
	d.all.publishAt(snap.version, snap.all)
	d.forcedValue.publishAt(snap.version, snap.forced)
}

func (d *LanguageDomain) eventInput(id string, value *bool, removed []string, count int) activity.OverrideEventInput {
	return activity.OverrideEventInput{
		ActorID:  d.cfg.actor,
		Domain:   string(KindLanguage),
		OptionID: id,
		Value:    value,
		Removed:  removed,
		Count:    count,
	}
}

func (d *LanguageDomain) emit(events ...activity.Event) {
	if !d.cfg.emitter.Enabled() {
		return
	}
	if err := d.cfg.emitter.EmitAll(context.Background(), events...); err != nil {
		d.cfg.logger.Warn("overrides: activity hook failed", "domain", string(KindLanguage), "error", err)
	}
}
