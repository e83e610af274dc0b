// Package filelist manages the list and delete lifecycle of one storage
// destination on behalf of a view.
//
// A Manager resolves a provider from a StorageConfig, fetches listings and
// deletes objects, and publishes the result as Snapshot values. Provider calls
// run without holding the manager lock. Results that arrive after the
// configuration changed, or after a newer fetch started, are discarded.
package filelist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/bucketdeck/pkg/provider"
	"github.com/3leaps/bucketdeck/pkg/provider/factory"
)

var (
	// ErrNotConfirmed is returned when the Confirmer declines a delete.
	ErrNotConfirmed = errors.New("delete not confirmed")

	// ErrDeleteInProgress is returned when a delete of the same key is already running.
	ErrDeleteInProgress = errors.New("delete already in progress")

	// ErrSuperseded is returned when a result was discarded because the
	// configuration changed or a newer fetch started.
	ErrSuperseded = errors.New("result superseded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("manager closed")
)

// ProviderFactory resolves providers. *factory.Factory implements it.
type ProviderFactory interface {
	Create(cfg provider.StorageConfig) (provider.Provider, error)
}

// FactoryFunc adapts a function to ProviderFactory.
type FactoryFunc func(cfg provider.StorageConfig) (provider.Provider, error)

func (f FactoryFunc) Create(cfg provider.StorageConfig) (provider.Provider, error) {
	return f(cfg)
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfirmer sets the delete confirmation hook. The default denies.
func WithConfirmer(c Confirmer) Option {
	return func(m *Manager) { m.confirmer = c }
}

// WithNotifier sets the notification hook. The default logs.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithTimeouts bounds each provider call. Zero leaves the call to the
// transport's own timeouts.
func WithTimeouts(list, del time.Duration) Option {
	return func(m *Manager) {
		m.listTimeout = list
		m.deleteTimeout = del
	}
}

// Manager owns the listing state of one storage destination.
type Manager struct {
	factory       ProviderFactory
	confirmer     Confirmer
	notifier      Notifier
	logger        *zap.Logger
	listTimeout   time.Duration
	deleteTimeout time.Duration

	mu         sync.Mutex
	closed     bool
	gen        uint64
	cfgSeq     uint64
	genCtx     context.Context
	genCancel  context.CancelFunc
	cfg        provider.StorageConfig
	prov       provider.Provider
	supported  bool
	items      []provider.ObjectDescriptor
	err        error
	state      State
	inflight   int
	fetchSeq   uint64
	deleting   map[string]struct{}
	tombstones map[string]uint64
	version    uint64

	subMu   sync.Mutex
	subs    map[uint64]*subscriber
	nextSub uint64

	// pubMu serializes delivery so each subscriber sees increasing versions.
	pubMu sync.Mutex
}

type subscriber struct {
	fn   func(Snapshot)
	last uint64
}

// New creates a Manager. A nil factory uses the default provider factory.
func New(f ProviderFactory, opts ...Option) *Manager {
	if f == nil {
		f = FactoryFunc(factory.Create)
	}
	genCtx, genCancel := context.WithCancel(context.Background())
	m := &Manager{
		factory:    f,
		confirmer:  DenyAll,
		logger:     zap.NewNop(),
		genCtx:     genCtx,
		genCancel:  genCancel,
		deleting:   make(map[string]struct{}),
		tombstones: make(map[string]uint64),
		subs:       make(map[uint64]*subscriber),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = logNotifier{logger: m.logger}
	}
	return m
}

// SetConfig resolves a provider for cfg and replaces the current one.
//
// In-flight work for the previous configuration is cancelled and its results
// are discarded. The snapshot is cleared. An unsupported storage type leaves
// an empty, unsupported snapshot and returns nil. A resolution error moves
// the manager to StateErrored. Otherwise the first listing runs before
// SetConfig returns.
//
// Concurrent calls are ordered by entry: if a later call starts while this
// one is still resolving its provider, this one returns ErrSuperseded and
// leaves the state to the later call.
func (m *Manager) SetConfig(ctx context.Context, cfg provider.StorageConfig) error {
	cfg = cfg.Normalized()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.cfgSeq++
	ticket := m.cfgSeq
	m.mu.Unlock()

	p, createErr := m.factory.Create(cfg)
	unsupported := provider.IsUnsupported(createErr)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = closeProvider(p)
		return ErrClosed
	}
	if ticket != m.cfgSeq {
		m.mu.Unlock()
		_ = closeProvider(p)
		return ErrSuperseded
	}
	old := m.prov
	m.genCancel()
	m.gen++
	m.genCtx, m.genCancel = context.WithCancel(context.Background())
	m.cfg = cfg
	m.items = nil
	m.err = nil
	m.inflight = 0
	m.deleting = make(map[string]struct{})
	m.tombstones = make(map[string]uint64)
	m.prov = nil
	m.supported = !unsupported
	m.state = StateIdle
	switch {
	case unsupported:
	case createErr != nil:
		m.err = createErr
		m.state = StateErrored
	default:
		m.prov = p
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if old != nil {
		if err := closeProvider(old); err != nil {
			m.logger.Debug("closing previous provider", zap.Error(err))
		}
	}
	m.publish(snap)

	redacted := cfg.Redacted()
	switch {
	case unsupported:
		m.logger.Info("storage type has no provider; management disabled",
			zap.String("type", cfg.Type.String()))
		return nil
	case createErr != nil:
		m.notify(Notification{Kind: NotifyFailure, Op: OpConfigure, Message: msgConfigFailed, Err: createErr})
		return createErr
	}

	m.logger.Debug("storage configured",
		zap.String("type", redacted.Type.String()),
		zap.String("bucket", redacted.Bucket),
		zap.String("endpoint", redacted.Endpoint),
		zap.String("path", redacted.Path))

	return m.FetchFiles(ctx)
}

// FetchFiles lists the current provider and replaces the items.
//
// Without a provider it is a no-op. On failure the previous items are kept,
// a failure notification is sent and the error is returned. ErrSuperseded
// means the result was discarded.
func (m *Manager) FetchFiles(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	p := m.prov
	if p == nil {
		m.mu.Unlock()
		return nil
	}
	gen, genCtx := m.gen, m.genCtx
	m.fetchSeq++
	seq := m.fetchSeq
	m.inflight++
	m.err = nil
	m.state = StateLoading
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(snap)

	opCtx, cancel := operationContext(ctx, genCtx, m.listTimeout)
	start := time.Now()
	items, err := p.List(opCtx)
	cancel()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug("discarding listing for replaced configuration")
		return ErrSuperseded
	}
	m.inflight--
	if seq != m.fetchSeq {
		snap := m.snapshotLocked()
		m.mu.Unlock()
		m.publish(snap)
		m.logger.Debug("discarding listing superseded by a newer fetch", zap.Uint64("seq", seq))
		return ErrSuperseded
	}
	if err != nil {
		m.err = err
		m.state = StateErrored
	} else {
		m.items = m.dropTombstonedLocked(items, seq)
		m.state = StateReady
	}
	snap = m.snapshotLocked()
	m.mu.Unlock()
	m.publish(snap)

	if err != nil {
		m.notify(Notification{Kind: NotifyFailure, Op: OpList, Message: msgListFailed, Err: err})
		return err
	}
	m.logger.Debug("listing complete",
		zap.Int("items", len(snap.Items)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// DeleteFile deletes obj after the Confirmer approves it.
//
// The item is removed from the snapshot only once the provider acknowledges
// the delete. On failure the items are left untouched, a failure notification
// is sent and the error is returned. Deletes of different keys may run
// concurrently; a second delete of a key already in flight returns
// ErrDeleteInProgress.
func (m *Manager) DeleteFile(ctx context.Context, obj provider.ObjectDescriptor) error {
	key := obj.Key

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	p := m.prov
	if p == nil {
		m.mu.Unlock()
		return nil
	}
	if _, busy := m.deleting[key]; busy {
		m.mu.Unlock()
		return ErrDeleteInProgress
	}
	m.deleting[key] = struct{}{}
	gen, genCtx := m.gen, m.genCtx
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		if m.gen == gen {
			delete(m.deleting, key)
		}
		m.mu.Unlock()
	}

	ok, err := m.confirmer.Confirm(ctx, obj)
	if err != nil {
		release()
		return fmt.Errorf("confirm delete of %q: %w", key, err)
	}
	if !ok {
		release()
		m.logger.Debug("delete declined", zap.String("key", key))
		return ErrNotConfirmed
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrSuperseded
	}
	m.inflight++
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.publish(snap)

	opCtx, cancel := operationContext(ctx, genCtx, m.deleteTimeout)
	err = p.Delete(opCtx, key)
	cancel()

	m.mu.Lock()
	stale := m.gen != gen
	if !stale {
		m.inflight--
		delete(m.deleting, key)
		if err == nil {
			m.items = removeKey(m.items, key)
			m.tombstones[key] = m.fetchSeq
		}
		snap = m.snapshotLocked()
	}
	m.mu.Unlock()
	if !stale {
		m.publish(snap)
	}

	// The remote outcome is reported even when the configuration has since
	// changed, because the object is gone either way.
	if err != nil {
		m.notify(Notification{Kind: NotifyFailure, Op: OpDelete, Key: key, Message: msgDeleteFailed, Err: err})
		return err
	}
	m.notify(Notification{Kind: NotifySuccess, Op: OpDelete, Key: key, Message: msgDeleteSucceeded})
	return nil
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotAtLocked(m.version)
}

// Config returns the current configuration with credentials redacted.
func (m *Manager) Config() provider.StorageConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Redacted()
}

// URL returns the public URL of key, or "" when the provider cannot say.
func (m *Manager) URL(key string) string {
	m.mu.Lock()
	p := m.prov
	m.mu.Unlock()
	if r, ok := p.(provider.URLResolver); ok {
		return r.URL(key)
	}
	return ""
}

// Subscribe registers fn for every published snapshot and delivers the
// current one immediately. Callbacks run synchronously in publication order
// and must not call SetConfig, FetchFiles or DeleteFile.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	snap := m.Snapshot()
	sub := &subscriber{fn: fn, last: snap.Version}

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = sub
	m.subMu.Unlock()

	fn(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// Close cancels in-flight work and releases the provider. Later calls return
// ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.genCancel()
	p := m.prov
	m.prov = nil
	m.mu.Unlock()

	m.subMu.Lock()
	m.subs = make(map[uint64]*subscriber)
	m.subMu.Unlock()

	return closeProvider(p)
}

// snapshotLocked bumps the version and captures the state. Callers hold mu.
func (m *Manager) snapshotLocked() Snapshot {
	m.version++
	return m.snapshotAtLocked(m.version)
}

func (m *Manager) snapshotAtLocked(version uint64) Snapshot {
	return Snapshot{
		Items:     slices.Clone(m.items),
		Loading:   m.inflight > 0,
		Err:       m.err,
		State:     m.state,
		Supported: m.supported,
		Type:      m.cfg.Type,
		Version:   version,
	}
}

// dropTombstonedLocked filters keys deleted while listing seq was in flight
// and clears tombstones no later fetch can need.
func (m *Manager) dropTombstonedLocked(items []provider.ObjectDescriptor, seq uint64) []provider.ObjectDescriptor {
	if len(m.tombstones) == 0 {
		return items
	}
	out := items[:0:0]
	for _, it := range items {
		if deletedAt, ok := m.tombstones[it.Key]; ok && deletedAt >= seq {
			continue
		}
		out = append(out, it)
	}
	m.tombstones = make(map[string]uint64)
	return out
}

func (m *Manager) publish(snap Snapshot) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	m.subMu.Lock()
	subs := make([]*subscriber, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.subMu.Unlock()

	for _, sub := range subs {
		// A snapshot captured before a newer one was delivered is dropped.
		if snap.Version <= sub.last {
			continue
		}
		sub.last = snap.Version
		sub.fn(snap)
	}
}

func (m *Manager) notify(n Notification) {
	m.notifier.Notify(n)
}

// operationContext derives a context cancelled by the caller, by the
// configuration generation ending, or by the timeout.
func operationContext(ctx, genCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(genCtx, cancel)
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		opCtx, cancelTimeout = context.WithTimeout(opCtx, timeout)
		return opCtx, func() {
			cancelTimeout()
			stop()
			cancel()
		}
	}
	return opCtx, func() {
		stop()
		cancel()
	}
}

func closeProvider(p provider.Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
