package presets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	overrides "github.com/goliatone/go-overrides"
	"github.com/goliatone/go-overrides/pkg/activity"
	"github.com/goliatone/go-overrides/pkg/logging"
	"github.com/goliatone/go-overrides/pkg/storage"
	"github.com/google/uuid"
)

const defaultApplyTimeout = 5 * time.Second

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator overrides preset id generation.
func WithIDGenerator(next func() string) Option {
	return func(o *Orchestrator) {
		if next != nil {
			o.newID = next
		}
	}
}

// WithLogger routes warnings to logger.
func WithLogger(logger overrides.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.OrNop(logger)
	}
}

// WithActivity emits preset lifecycle events through emitter.
func WithActivity(emitter *activity.Emitter) Option {
	return func(o *Orchestrator) {
		o.emitter = emitter
	}
}

// WithActor stamps emitted events with actor.
func WithActor(actor string) Option {
	return func(o *Orchestrator) {
		o.actor = strings.TrimSpace(actor)
	}
}

// WithApplyTimeout bounds Apply when the caller's context has no deadline.
func WithApplyTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.applyTimeout = timeout
		}
	}
}

// Orchestrator captures, stores and replays presets. It is safe for
// concurrent use. Applying a preset while another caller changes the same
// domain is last-write-wins.
type Orchestrator struct {
	domains      Domains
	adapter      *storage.Adapter
	clock        func() time.Time
	newID        func() string
	logger       overrides.Logger
	emitter      *activity.Emitter
	actor        string
	applyTimeout time.Duration

	mu      sync.Mutex
	presets []Preset
}

// New loads the persisted preset list from adapter. A nil adapter keeps
// presets in memory only.
func New(domains Domains, adapter *storage.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		domains:      domains,
		adapter:      adapter,
		clock:        func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
		logger:       logging.Nop(),
		applyTimeout: defaultApplyTimeout,
		presets:      []Preset{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	o.load()
	return o
}

func (o *Orchestrator) load() {
	if o.adapter == nil {
		return
	}
	var stored []Preset
	if !o.adapter.Read(StorageKey, &stored) {
		return
	}
	for _, preset := range stored {
		if strings.TrimSpace(preset.ID) == "" {
			o.logger.Warn("presets: skipping stored preset without id", "name", preset.Name)
			continue
		}
		o.presets = append(o.presets, preset.Clone())
	}
}

// Capture snapshots the forced state of every bound domain, restricted by
// selection.
func (o *Orchestrator) Capture(selection Selection) Config {
	config := Config{
		FeatureFlags: captureState(o.domains.FeatureFlags, selection.FeatureFlags),
		Permissions:  permissionsFrom(captureState(o.domains.Permissions, selection.Permissions)),
		AppFeatures:  captureState(o.domains.AppFeatures, selection.AppFeatures),
	}
	if o.domains.Language != nil && !selection.ExcludeLanguage {
		if id, ok := o.domains.Language.ForcedLanguage(); ok {
			config.Language = &id
		}
	}
	return config
}

func captureState(domain StateDomain, ids []string) overrides.ForcedState {
	if domain == nil {
		return overrides.ForcedState{}.Clone()
	}
	return domain.CurrentState().Restrict(ids)
}

// CurrentForcedState captures every domain in full.
func (o *Orchestrator) CurrentForcedState() Config {
	return o.Capture(All)
}

// Save captures the current state into a new preset.
func (o *Orchestrator) Save(name, description string, selection Selection) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, ErrEmptyName
	}
	now := o.clock()
	preset := Preset{
		ID:          o.newID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
		Config:      o.Capture(selection),
	}

	o.mu.Lock()
	o.presets = append(o.presets, preset.Clone())
	o.persistLocked()
	o.mu.Unlock()

	o.emit(activity.VerbPresetSaved, preset)
	return preset, nil
}

// Apply replays preset id onto every bound domain. The multi-option domains
// are replaced synchronously; the language step waits for the language
// registry and is bounded by ctx or the apply timeout. Unknown ids are a
// no-op.
func (o *Orchestrator) Apply(ctx context.Context, id string) error {
	preset, ok := o.Get(id)
	if !ok {
		o.logger.Debug("presets: apply skipped, preset not found", "id", id)
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.applyTimeout)
		defer cancel()
	}

	config := preset.Config
	o.applyState(overrides.KindFeatureFlags, o.domains.FeatureFlags, config.FeatureFlags)
	o.applyState(overrides.KindPermissions, o.domains.Permissions, config.Permissions.Forced())
	o.applyState(overrides.KindAppFeatures, o.domains.AppFeatures, config.AppFeatures)

	var err error
	if o.domains.Language != nil {
		if err = o.domains.Language.ApplyLanguage(ctx, config.Language); err != nil {
			o.logger.Warn("presets: language step did not complete", "id", preset.ID, "error", err)
			err = fmt.Errorf("presets: apply %s language: %w", preset.ID, err)
		}
	}

	o.emit(activity.VerbPresetApplied, preset)
	return err
}

func (o *Orchestrator) applyState(kind overrides.Kind, domain StateDomain, state overrides.ForcedState) {
	if domain == nil {
		return
	}
	if dropped := domain.ApplyState(state); len(dropped) > 0 {
		o.logger.Debug("presets: ids dropped while applying", "domain", string(kind), "ids", dropped)
	}
}

// ApplyAsync runs Apply in its own goroutine. The channel receives the
// result and is closed.
func (o *Orchestrator) ApplyAsync(ctx context.Context, id string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- o.Apply(ctx, id)
	}()
	return done
}

// Update re-captures the current state into preset id, keeping its id,
// name, description and creation time.
func (o *Orchestrator) Update(id string) (Preset, bool) {
	config := o.CurrentForcedState()
	return o.mutate(id, activity.VerbPresetUpdated, func(p *Preset) {
		p.Config = config
	})
}

// UpdateMetadata renames preset id and replaces its description. An empty
// name keeps the current one.
func (o *Orchestrator) UpdateMetadata(id, name, description string) (Preset, bool) {
	return o.mutate(id, activity.VerbPresetUpdated, func(p *Preset) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			p.Name = trimmed
		}
		p.Description = strings.TrimSpace(description)
	})
}

func (o *Orchestrator) mutate(id, verb string, change func(*Preset)) (Preset, bool) {
	o.mu.Lock()
	index := o.indexLocked(id)
	if index < 0 {
		o.mu.Unlock()
		return Preset{}, false
	}
	preset := o.presets[index].Clone()
	change(&preset)
	preset.UpdatedAt = o.clock()
	o.presets[index] = preset.Clone()
	o.persistLocked()
	o.mu.Unlock()

	o.emit(verb, preset)
	return preset, true
}

// Delete removes preset id. It reports whether the preset existed.
func (o *Orchestrator) Delete(id string) bool {
	o.mu.Lock()
	index := o.indexLocked(id)
	if index < 0 {
		o.mu.Unlock()
		return false
	}
	removed := o.presets[index]
	o.presets = append(o.presets[:index:index], o.presets[index+1:]...)
	o.persistLocked()
	o.mu.Unlock()

	o.emit(activity.VerbPresetDeleted, removed)
	return true
}

// Add stores a copy of preset under a fresh id and timestamps.
func (o *Orchestrator) Add(preset Preset) Preset {
	now := o.clock()
	added := preset.Clone()
	added.ID = o.newID()
	added.Name = strings.TrimSpace(added.Name)
	added.Description = strings.TrimSpace(added.Description)
	added.CreatedAt = now
	added.UpdatedAt = now

	o.mu.Lock()
	o.presets = append(o.presets, added.Clone())
	o.persistLocked()
	o.mu.Unlock()

	o.emit(activity.VerbPresetImported, added)
	return added
}

// Import parses an exported preset and adds it under a fresh id.
func (o *Orchestrator) Import(data []byte) (Preset, error) {
	var preset Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return Preset{}, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	if strings.TrimSpace(preset.Name) == "" {
		return Preset{}, fmt.Errorf("%w: %v", ErrInvalidPreset, ErrEmptyName)
	}
	return o.Add(preset), nil
}

// Export renders preset id as indented JSON.
func (o *Orchestrator) Export(id string) (string, bool) {
	preset, ok := o.Get(id)
	if !ok {
		return "", false
	}
	payload, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		o.logger.Error("presets: export failed", "id", id, "error", err)
		return "", false
	}
	return string(payload), true
}

// Get returns a copy of preset id.
func (o *Orchestrator) Get(id string) (Preset, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	index := o.indexLocked(id)
	if index < 0 {
		return Preset{}, false
	}
	return o.presets[index].Clone(), true
}

// List returns copies of every preset in creation order.
func (o *Orchestrator) List() []Preset {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Preset, len(o.presets))
	for i, preset := range o.presets {
		out[i] = preset.Clone()
	}
	return out
}

// FindByName returns the first preset named name, ignoring case.
func (o *Orchestrator) FindByName(name string) (Preset, bool) {
	name = strings.TrimSpace(name)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, preset := range o.presets {
		if strings.EqualFold(preset.Name, name) {
			return preset.Clone(), true
		}
	}
	return Preset{}, false
}

func (o *Orchestrator) indexLocked(id string) int {
	for i, preset := range o.presets {
		if preset.ID == id {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) persistLocked() {
	if o.adapter == nil {
		return
	}
	_ = o.adapter.Write(StorageKey, o.presets)
}

func (o *Orchestrator) emit(verb string, preset Preset) {
	if !o.emitter.Enabled() {
		return
	}
	event := activity.BuildPresetEvent(verb, activity.PresetEventInput{
		ActorID:  o.actor,
		PresetID: preset.ID,
		Name:     preset.Name,
	})
	if err := o.emitter.Emit(context.Background(), event); err != nil {
		o.logger.Warn("presets: activity hook failed", "verb", verb, "error", err)
	}
}
