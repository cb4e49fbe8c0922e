package sectionsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/misicnenad/fith-on/internal/program"
	"github.com/misicnenad/fith-on/internal/sections"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config describes the collaborators of an Engine. Store, Network and Identity are
// required; the rest fall back to no-op or default implementations.
type Config struct {
	Store      Store
	Network    Network
	Identity   Identity
	FailureLog FailureLog
	Alerter    Alerter
	Cache      Cache
	IDProvider IDProvider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// State is the observable engine state delivered to subscribers.
type State struct {
	Sections []sections.Section
	Busy     bool
}

// Engine owns one user's section collection and mediates every change to it.
// Remote success gates each local change. Mutations are serialized so that two
// overlapping calls never overwrite each other's effect.
type Engine struct {
	store    Store
	network  Network
	identity Identity
	failures FailureLog
	alerter  Alerter
	cache    Cache
	ids      IDProvider
	clock    func() time.Time
	logger   *zap.Logger

	loads     singleflight.Group
	mutations sync.Mutex
	refreshCh chan struct{}
	register  sync.Once

	mu             sync.Mutex
	items          []sections.Section
	inFlight       int
	lastCreated    int64
	subscribers    map[int64]chan State
	nextSubscriber int64
}

// NewEngine validates the configuration and returns an idle engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Network == nil {
		return nil, errMissingNetwork
	}
	if cfg.Identity == nil {
		return nil, errMissingIdentity
	}

	failures := cfg.FailureLog
	if failures == nil {
		failures = discardFailures{}
	}
	alerter := cfg.Alerter
	if alerter == nil {
		alerter = discardAlerts{}
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = sections.NewUUIDProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		store:       cfg.Store,
		network:     cfg.Network,
		identity:    cfg.Identity,
		failures:    failures,
		alerter:     alerter,
		cache:       cfg.Cache,
		ids:         ids,
		clock:       clock,
		logger:      logger,
		refreshCh:   make(chan struct{}, 1),
		subscribers: make(map[int64]chan State),
	}, nil
}

// Sections returns a copy of the collection, newest first.
func (e *Engine) Sections() []sections.Section {
	e.mu.Lock()
	defer e.mu.Unlock()
	return sections.CloneAll(e.items)
}

// Section returns a copy of one section from the collection.
func (e *Engine) Section(id sections.SectionID) (sections.Section, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	index := indexOf(e.items, id)
	if index < 0 {
		return sections.Section{}, false
	}
	return e.items[index].Clone(), true
}

// Busy reports whether any operation is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight > 0
}

// Preconditions reports why operations would currently be skipped, or nil.
func (e *Engine) Preconditions() error {
	if e.network.IsOffline() {
		return ErrOffline
	}
	if strings.TrimSpace(e.identity.UserKey()) == "" {
		return ErrNoIdentity
	}
	return nil
}

// Run restores the cached collection, subscribes to connectivity changes, loads, and
// then serves Refresh requests until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.RestoreSnapshot(ctx); err != nil {
		e.logger.Warn("snapshot restore failed", zap.Error(err))
	}
	e.register.Do(func() {
		e.network.OnBecomingOnline(e.Refresh)
	})
	_ = e.Load(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.refreshCh:
			_ = e.Load(ctx)
		}
	}
}

// Refresh asks Run to reload. Requests made while one is pending coalesce.
func (e *Engine) Refresh() {
	select {
	case e.refreshCh <- struct{}{}:
	default:
	}
}

// RestoreSnapshot seeds an empty collection from the cache, if one is configured.
func (e *Engine) RestoreSnapshot(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	userKey := strings.TrimSpace(e.identity.UserKey())
	if userKey == "" {
		return nil
	}
	cached, err := e.cache.Load(ctx, userKey)
	if err != nil {
		return err
	}
	if len(cached) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.items) > 0 {
		return nil
	}
	e.items = sections.CloneAll(cached)
	sections.Sort(e.items)
	e.trackCreatedLocked()
	e.notifyLocked()
	return nil
}

// Load replaces the collection with the user's sections from the store. Overlapping
// calls share one request. Failures leave the collection untouched.
func (e *Engine) Load(ctx context.Context) error {
	userKey, ok := e.ready(opLoad)
	if !ok {
		return nil
	}
	_, err, _ := e.loads.Do(userKey, func() (any, error) {
		return nil, e.load(ctx, userKey)
	})
	return err
}

// load holds the mutation lock so a fetched collection never replaces a change
// committed while the fetch was in flight.
func (e *Engine) load(ctx context.Context, userKey string) error {
	e.mutations.Lock()
	defer e.mutations.Unlock()

	e.begin()
	defer e.end()

	fetched, err := e.store.GetSections(ctx, userKey)
	if err != nil {
		return e.fail(opLoad, userKey, err)
	}
	items := sections.CloneAll(fetched)
	sections.Sort(items)
	items = dedupe(items)

	e.mu.Lock()
	if !e.sameUser(userKey) {
		e.mu.Unlock()
		e.logger.Debug("discarding load for signed out user", zap.String("user_key", userKey))
		return nil
	}
	e.items = items
	e.trackCreatedLocked()
	e.notifyLocked()
	snapshot := sections.CloneAll(e.items)
	e.mu.Unlock()

	e.saveSnapshot(ctx, userKey, snapshot)
	return nil
}

// Add assigns an id and creation time, persists the section and then inserts it.
// Caller supplied ids and dates are ignored.
func (e *Engine) Add(ctx context.Context, section sections.Section) (sections.Section, error) {
	if _, ok := e.ready(opAdd); !ok {
		return sections.Section{}, nil
	}

	e.mutations.Lock()
	defer e.mutations.Unlock()

	userKey, ok := e.ready(opAdd)
	if !ok {
		return sections.Section{}, nil
	}

	e.begin()
	defer e.end()

	rawID, err := e.ids.NewID()
	if err != nil {
		return sections.Section{}, e.fail(opAdd, userKey, err)
	}
	sectionID, err := sections.NewSectionID(rawID)
	if err != nil {
		return sections.Section{}, e.fail(opAdd, userKey, err)
	}

	created := section.Clone()
	created.ID = sectionID
	created.DateCreated = e.nextCreated()
	if err := created.Validate(); err != nil {
		return sections.Section{}, e.fail(opAdd, userKey, err)
	}

	if err := e.store.AddSection(ctx, userKey, created.Clone()); err != nil {
		return sections.Section{}, e.fail(opAdd, userKey, err)
	}

	e.commit(ctx, userKey, func(items []sections.Section) []sections.Section {
		items = removeID(items, created.ID)
		return append(items, created.Clone())
	})
	return created.Clone(), nil
}

// Remove deletes the section remotely and then drops it from the collection.
func (e *Engine) Remove(ctx context.Context, id sections.SectionID) error {
	if _, ok := e.ready(opRemove); !ok {
		return nil
	}

	e.mutations.Lock()
	defer e.mutations.Unlock()

	userKey, ok := e.ready(opRemove)
	if !ok {
		return nil
	}

	e.begin()
	defer e.end()

	sectionID, err := sections.NewSectionID(id.String())
	if err != nil {
		return e.fail(opRemove, userKey, err)
	}
	if err := e.store.RemoveSection(ctx, userKey, sectionID); err != nil {
		return e.fail(opRemove, userKey, err)
	}

	e.commit(ctx, userKey, func(items []sections.Section) []sections.Section {
		return removeID(items, sectionID)
	})
	return nil
}

// Update replaces the section with the same id, remotely first. An id missing from
// the local collection leaves the collection unchanged once the store accepts it.
// The creation date of a known section is kept and its type may not change.
func (e *Engine) Update(ctx context.Context, section sections.Section) error {
	if _, ok := e.ready(opUpdate); !ok {
		return nil
	}

	e.mutations.Lock()
	defer e.mutations.Unlock()

	userKey, ok := e.ready(opUpdate)
	if !ok {
		return nil
	}

	e.begin()
	defer e.end()

	return e.update(ctx, opUpdate, userKey, section.Clone())
}

// UpdateExercise records a change to one exercise of one week of a block, typically
// the AMRAP reps, and persists the whole section.
func (e *Engine) UpdateExercise(ctx context.Context, id sections.SectionID, weekNumber int, exercise program.Exercise) error {
	if _, ok := e.ready(opUpdateExercise); !ok {
		return nil
	}

	e.mutations.Lock()
	defer e.mutations.Unlock()

	userKey, ok := e.ready(opUpdateExercise)
	if !ok {
		return nil
	}

	e.begin()
	defer e.end()

	current, found := e.Section(id)
	if !found {
		return e.fail(opUpdateExercise, userKey, fmt.Errorf("%w: %s", ErrUnknownSection, id))
	}
	if current.Type != sections.TypeBlock || current.Block == nil {
		return e.fail(opUpdateExercise, userKey, fmt.Errorf("%w: %s", ErrNotABlock, id))
	}

	week, found := current.Block.Week(weekNumber)
	if !found {
		return e.fail(opUpdateExercise, userKey, fmt.Errorf("%w: %d", program.ErrUnknownWeek, weekNumber))
	}
	block, err := current.Block.WithWeek(program.ReplaceExerciseInWeek(week, exercise))
	if err != nil {
		return e.fail(opUpdateExercise, userKey, err)
	}
	current.Block = &block

	return e.update(ctx, opUpdateExercise, userKey, current)
}

// update requires the mutation lock. A section already in the collection keeps its
// creation date and type.
func (e *Engine) update(ctx context.Context, operation, userKey string, section sections.Section) error {
	if existing, found := e.Section(section.ID); found {
		if existing.Type != section.Type {
			return e.fail(operation, userKey, fmt.Errorf("%w: %s is a %s", ErrTypeChanged, section.ID, existing.Type))
		}
		section.DateCreated = existing.DateCreated
	}
	if err := section.Validate(); err != nil {
		return e.fail(operation, userKey, err)
	}
	if err := e.store.UpdateSection(ctx, userKey, section.Clone()); err != nil {
		return e.fail(operation, userKey, err)
	}

	e.commit(ctx, userKey, func(items []sections.Section) []sections.Section {
		index := indexOf(items, section.ID)
		if index < 0 {
			e.logger.Warn("updated section not in local collection",
				zap.String("operation", operation),
				zap.String("user_key", userKey),
				zap.String("section_id", section.ID.String()))
			return items
		}
		items[index] = section.Clone()
		return items
	})
	return nil
}

// commit applies change to the current collection, keeps it sorted and notifies.
func (e *Engine) commit(ctx context.Context, userKey string, change func([]sections.Section) []sections.Section) {
	e.mu.Lock()
	if !e.sameUser(userKey) {
		e.mu.Unlock()
		e.logger.Debug("discarding local change for signed out user", zap.String("user_key", userKey))
		return
	}
	items := change(sections.CloneAll(e.items))
	sections.Sort(items)
	e.items = items
	e.notifyLocked()
	snapshot := sections.CloneAll(e.items)
	e.mu.Unlock()

	e.saveSnapshot(ctx, userKey, snapshot)
}

func (e *Engine) ready(operation string) (string, bool) {
	if e.network.IsOffline() {
		e.logger.Debug("skipping operation while offline", zap.String("operation", operation))
		return "", false
	}
	userKey := strings.TrimSpace(e.identity.UserKey())
	if userKey == "" {
		e.logger.Debug("skipping operation without user identity", zap.String("operation", operation))
		return "", false
	}
	return userKey, true
}

func (e *Engine) sameUser(userKey string) bool {
	return strings.TrimSpace(e.identity.UserKey()) == userKey
}

func (e *Engine) fail(operation, userKey string, err error) error {
	e.failures.Log(userKey, operation, err)
	e.alerter.Alert(alertMessages[operation])
	e.logError(operation, userKey, err)
	return &OperationError{Operation: operation, UserKey: userKey, Err: err}
}

func (e *Engine) logError(operation, userKey string, err error) {
	e.logger.Error("section sync error",
		zap.String("operation", operation),
		zap.String("user_key", userKey),
		zap.Error(err))
}

// nextCreated hands out strictly increasing creation times in unix milliseconds.
func (e *Engine) nextCreated() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	created := e.clock().UnixMilli()
	if created <= e.lastCreated {
		created = e.lastCreated + 1
	}
	e.lastCreated = created
	return created
}

func (e *Engine) trackCreatedLocked() {
	for _, item := range e.items {
		if item.DateCreated > e.lastCreated {
			e.lastCreated = item.DateCreated
		}
	}
}

func (e *Engine) saveSnapshot(ctx context.Context, userKey string, items []sections.Section) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Save(ctx, userKey, items); err != nil {
		e.logger.Warn("snapshot save failed", zap.String("user_key", userKey), zap.Error(err))
	}
}

func (e *Engine) begin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight++
	e.notifyLocked()
}

func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight--
	e.notifyLocked()
}

func indexOf(items []sections.Section, id sections.SectionID) int {
	for index, item := range items {
		if item.ID == id {
			return index
		}
	}
	return -1
}

func removeID(items []sections.Section, id sections.SectionID) []sections.Section {
	kept := items[:0]
	for _, item := range items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	return kept
}

// dedupe keeps the first occurrence of each id in a sorted slice.
func dedupe(items []sections.Section) []sections.Section {
	seen := make(map[sections.SectionID]struct{}, len(items))
	kept := items[:0]
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		kept = append(kept, item)
	}
	return kept
}
