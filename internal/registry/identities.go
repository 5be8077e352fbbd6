package registry

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/domain"
	"github.com/spec-kit/ticket-activity/internal/store"
	"github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

// Identities is the registry of tracked user identities and source-bot
// identities, backed by the persisted config document. Mutations flush
// synchronously while holding the lock.
type Identities struct {
	mu     sync.RWMutex
	store  store.ConfigStore
	logger *zap.Logger

	tracked          map[int64]struct{}
	sources          map[int64]struct{}
	guildID          int64
	reportsChannelID int64
}

// Load reads the config document and builds the registry. The legacy
// single-source-id migration and known-source merge happen inside the store;
// the merged result is written back so the upgrade is one-shot.
func Load(ctx context.Context, st store.ConfigStore, logger *zap.Logger) (*Identities, error) {
	cfg, err := st.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	r := &Identities{
		store:            st,
		logger:           logger,
		tracked:          make(map[int64]struct{}, len(cfg.TrackedUsers)),
		sources:          make(map[int64]struct{}, len(cfg.SourceBotIDs)),
		guildID:          cfg.GuildID,
		reportsChannelID: cfg.ReportsChannelID,
	}
	for _, id := range cfg.TrackedUsers {
		r.tracked[id] = struct{}{}
	}
	for _, id := range cfg.SourceBotIDs {
		r.sources[id] = struct{}{}
	}

	if err := r.save(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// IsTracked reports whether the identity is opted into activity measurement.
func (r *Identities) IsTracked(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tracked[id]
	return ok
}

// IsSource reports whether the identity is a registered signal source.
func (r *Identities) IsSource(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[id]
	return ok
}

// TrackedIDs returns the tracked identities in ascending order.
func (r *Identities) TrackedIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.tracked)
}

// SourceIDs returns the source identities in ascending order.
func (r *Identities) SourceIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.sources)
}

// AddTracked registers an identity for tracking. A duplicate add is not a
// failure: it logs a warning and reports added=false.
func (r *Identities) AddTracked(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tracked[id]; ok {
		r.logger.Warn("identity already tracked", zap.Int64("identity", id))
		return false, nil
	}
	r.tracked[id] = struct{}{}
	return true, r.saveLocked(ctx)
}

// RemoveTracked removes an identity from tracking. A missing remove logs a
// warning and reports removed=false.
func (r *Identities) RemoveTracked(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tracked[id]; !ok {
		r.logger.Warn("identity not tracked", zap.Int64("identity", id))
		return false, nil
	}
	delete(r.tracked, id)
	return true, r.saveLocked(ctx)
}

// AddSource registers a source-bot identity.
func (r *Identities) AddSource(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; ok {
		r.logger.Warn("source already registered", zap.Int64("source", id))
		return false, nil
	}
	r.sources[id] = struct{}{}
	return true, r.saveLocked(ctx)
}

// RemoveSource removes a source-bot identity.
func (r *Identities) RemoveSource(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sources[id]; !ok {
		r.logger.Warn("source not registered", zap.Int64("source", id))
		return false, nil
	}
	delete(r.sources, id)
	return true, r.saveLocked(ctx)
}

// EnsureKnownSources re-adds any known source ids that have drifted out of
// the registry. Returns how many were restored.
func (r *Identities) EnsureKnownSources(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	restored := 0
	for _, id := range domain.KnownSourceIDs {
		if _, ok := r.sources[id]; !ok {
			r.logger.Info("restoring missing source id", zap.Int64("source", id))
			r.sources[id] = struct{}{}
			restored++
		}
	}
	if restored == 0 {
		return 0, nil
	}
	return restored, r.saveLocked(ctx)
}

// GuildID returns the owning guild identifier.
func (r *Identities) GuildID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.guildID
}

// SetGuildID updates the owning guild identifier.
func (r *Identities) SetGuildID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guildID = id
	return r.saveLocked(ctx)
}

// ReportsChannelID returns the channel automated reports are sent to, or 0
// when unset.
func (r *Identities) ReportsChannelID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reportsChannelID
}

// SetReportsChannel updates the automated-reports channel.
func (r *Identities) SetReportsChannel(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reportsChannelID = id
	return r.saveLocked(ctx)
}

func (r *Identities) save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveLocked(ctx)
}

func (r *Identities) saveLocked(ctx context.Context) error {
	cfg := &store.Config{
		TrackedUsers:     sortedIDs(r.tracked),
		SourceBotIDs:     sortedIDs(r.sources),
		GuildID:          r.guildID,
		ReportsChannelID: r.reportsChannelID,
	}
	if err := r.store.SaveConfig(ctx, cfg); err != nil {
		return errorutil.NewPersistenceFailure(err)
	}
	return nil
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
