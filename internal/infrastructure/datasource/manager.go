package datasource

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haebom/tariff/internal/domain/policy"
	"github.com/haebom/tariff/internal/domain/reference"
	"github.com/haebom/tariff/internal/infrastructure/messaging/kafka"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/logging"
	"github.com/haebom/tariff/internal/infrastructure/monitoring/prometheus"
	"github.com/haebom/tariff/pkg/errors"
)

// ReloadListener is told about every successful reload.
type ReloadListener interface {
	DatasetReloaded(ctx context.Context, p kafka.DatasetReloadedPayload) error
}

// ManagerOptions configure a Manager.
type ManagerOptions struct {
	RootLabel string
	Listener  ReloadListener
	Metrics   *prometheus.AppMetrics
}

// Manager owns the current snapshot.  Readers get the snapshot that was
// current when they asked; a reload swaps in a new one atomically and a
// failed reload leaves the previous one in place.
type Manager struct {
	src       Source
	paths     Paths
	rootLabel string
	listener  ReloadListener
	metrics   *prometheus.AppMetrics
	logger    logging.Logger

	current atomic.Pointer[Snapshot]
	version atomic.Uint64
	reload  sync.Mutex
	now     func() time.Time
}

func NewManager(src Source, paths Paths, opts ManagerOptions, log logging.Logger) *Manager {
	m := &Manager{
		src:       src,
		paths:     paths,
		rootLabel: opts.RootLabel,
		listener:  opts.Listener,
		metrics:   opts.Metrics,
		logger:    log.Named("datasource"),
		now:       time.Now,
	}
	if m.metrics == nil {
		m.metrics = prometheus.NewNoopAppMetrics()
	}
	return m
}

// Current returns the live snapshot, nil before the first successful load.
func (m *Manager) Current() *Snapshot { return m.current.Load() }

// Ready reports whether a snapshot has been loaded.
func (m *Manager) Ready() bool { return m.current.Load() != nil }

// Tree returns the live policy tree.
func (m *Manager) Tree() (*policy.Tree, error) {
	s := m.current.Load()
	if s == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "datasets not loaded")
	}
	return s.Tree, nil
}

// Reference returns the live reference dataset.
func (m *Manager) Reference() (*reference.Dataset, error) {
	s := m.current.Load()
	if s == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "datasets not loaded")
	}
	return s.Reference, nil
}

// Paths returns the configured dataset locations.
func (m *Manager) Paths() Paths { return m.paths }

// Reload loads both datasets and swaps them in.  changed names the files
// that triggered the reload, if any.
func (m *Manager) Reload(ctx context.Context, changed ...string) (*Snapshot, error) {
	m.reload.Lock()
	defer m.reload.Unlock()

	start := m.now()
	snap, err := Load(ctx, m.src, m.paths, m.rootLabel)
	if err != nil {
		m.metrics.DatasetReloadsTotal.WithLabelValues("failure").Inc()
		prometheus.RecordError(m.metrics, "datasource", string(errors.GetCode(err)))
		if prev := m.current.Load(); prev != nil {
			m.logger.Error("dataset reload failed, keeping previous snapshot",
				logging.Err(err), logging.Int64("version", int64(prev.Version)))
		} else {
			m.logger.Error("dataset load failed", logging.Err(err))
		}
		return nil, err
	}

	snap.Version = m.version.Add(1)
	snap.LoadedAt = m.now()
	m.current.Store(snap)

	m.metrics.DatasetReloadsTotal.WithLabelValues("success").Inc()
	m.report(snap, changed, m.now().Sub(start))

	if m.listener != nil {
		p := kafka.DatasetReloadedPayload{
			PolicyNodes:     snap.Tree.Len(),
			PolicyOmissions: len(snap.Tree.Omissions),
			Sections:        len(snap.Reference.Sections()),
			Entries:         snap.Reference.Len(),
			DroppedRows:     len(snap.Reference.Dropped),
			ChangedFiles:    changed,
		}
		if err := m.listener.DatasetReloaded(ctx, p); err != nil {
			m.logger.Warn("dataset reload event not published", logging.Err(err))
		}
	}
	return snap, nil
}

func (m *Manager) report(s *Snapshot, changed []string, took time.Duration) {
	for _, o := range s.Tree.Omissions {
		m.logger.Warn("policy branch omitted", logging.String("path", o.Path), logging.String("reason", o.Reason))
	}
	for _, d := range s.Reference.Dropped {
		m.logger.Warn("reference row dropped",
			logging.String("table", d.Table), logging.Int("line", d.Line), logging.String("reason", d.Reason))
	}
	for _, w := range s.Reference.Warnings {
		m.logger.Debug("declared parent disagrees with code prefix",
			logging.String("code", w.Code), logging.String("declared", w.DeclaredParent), logging.String("prefix_parent", w.PrefixParent))
	}

	kinds := map[policy.NodeKind]int{}
	for _, n := range s.Tree.Nodes() {
		kinds[n.Kind]++
	}
	for _, k := range []policy.NodeKind{policy.KindRoot, policy.KindCountry, policy.KindQuestion, policy.KindOutcome} {
		m.metrics.PolicyNodes.WithLabelValues(string(k)).Set(float64(kinds[k]))
	}
	m.metrics.PolicyOmissions.WithLabelValues().Set(float64(len(s.Tree.Omissions)))
	m.metrics.ReferenceEntries.WithLabelValues("sections").Set(float64(len(s.Reference.Sections())))
	m.metrics.ReferenceEntries.WithLabelValues("entries").Set(float64(s.Reference.Len()))
	m.metrics.ReferenceEntries.WithLabelValues("dropped").Set(float64(len(s.Reference.Dropped)))

	m.logger.Info("datasets loaded",
		logging.Int64("version", int64(s.Version)),
		logging.String("source", s.Source),
		logging.Int("policy_nodes", s.Tree.Len()),
		logging.Int("omissions", len(s.Tree.Omissions)),
		logging.Int("entries", s.Reference.Len()),
		logging.Int("dropped_rows", len(s.Reference.Dropped)),
		logging.Strings("changed", changed),
		logging.Duration("took", took))
}
