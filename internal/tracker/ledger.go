package tracker

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-activity/internal/domain"
	"github.com/spec-kit/ticket-activity/internal/registry"
	"github.com/spec-kit/ticket-activity/internal/store"
	"github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

// windowMap holds one aggregation window: identity -> action kind -> set of
// channel ids. Sets keep repeat actions on the same channel from inflating
// the counts.
type windowMap map[int64]map[domain.ActionKind]map[int64]struct{}

// Ledger is the aggregate root for activity tracking. It owns the three
// aggregation windows, the ticket-channel registry and the moderator message
// log, and drives persistence: every mutation flushes synchronously while
// holding the write lock.
type Ledger struct {
	mu         sync.RWMutex
	identities *registry.Identities
	store      store.DataStore
	logger     *zap.Logger

	channels map[int64]domain.TicketChannel
	activity map[domain.Window]windowMap
	messages store.MessageLog

	activityDirty bool
	messagesDirty bool
}

// Load restores ledger state from the data store.
func Load(ctx context.Context, identities *registry.Identities, st store.DataStore, logger *zap.Logger) (*Ledger, error) {
	snap, err := st.LoadActivity(ctx, identities.GuildID())
	if err != nil {
		return nil, err
	}
	messages, err := st.LoadMessages(ctx)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		identities: identities,
		store:      st,
		logger:     logger,
		channels:   make(map[int64]domain.TicketChannel, len(snap.Channels)),
		activity:   make(map[domain.Window]windowMap, len(domain.Windows())),
		messages:   messages,
	}
	for _, w := range domain.Windows() {
		l.activity[w] = make(windowMap)
	}
	for _, ch := range snap.Channels {
		l.channels[ch.ID] = ch
	}
	for window, perWindow := range snap.Activity {
		for identity, actions := range perWindow {
			for kind, channelIDs := range actions {
				for _, id := range channelIDs {
					l.insertLocked(window, identity, kind, id)
				}
			}
		}
	}
	return l, nil
}

// Record attributes an action to a tracked identity across all three windows
// at once; the windows differ only in when they reset. Recording for an
// untracked identity is a guarded no-op, and repeat calls with the same
// arguments are idempotent within a window.
func (l *Ledger) Record(ctx context.Context, identity, channelID int64, kind domain.ActionKind, now time.Time) error {
	if !l.identities.IsTracked(identity) {
		l.logger.Debug("identity not tracked; activity not recorded",
			zap.Int64("identity", identity), zap.Int64("channel", channelID))
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	changed := false
	for _, window := range domain.Windows() {
		if l.insertLocked(window, identity, kind, channelID) {
			changed = true
		}
	}
	if changed {
		l.logger.Info("activity recorded",
			zap.Int64("identity", identity),
			zap.Int64("channel", channelID),
			zap.String("action", string(kind)),
			zap.Time("at", now))
	}
	return l.flushActivityLocked(ctx)
}

// Aggregate returns the per-action distinct-channel counts for an identity
// in one window. Absent identities aggregate to zero.
func (l *Ledger) Aggregate(window domain.Window, identity int64) domain.ActivityCounts {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.countsLocked(window, identity)
}

// AggregateAll returns counts for every identity present in the window.
func (l *Ledger) AggregateAll(window domain.Window) map[int64]domain.ActivityCounts {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[int64]domain.ActivityCounts, len(l.activity[window]))
	for identity := range l.activity[window] {
		counts := l.countsLocked(window, identity)
		if !counts.Zero() {
			out[identity] = counts
		}
	}
	return out
}

// ResetWindow atomically replaces one window's mapping with empty state.
// The other windows are untouched.
func (l *Ledger) ResetWindow(ctx context.Context, window domain.Window) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activity[window] = make(windowMap)
	l.logger.Info("window reset", zap.String("window", string(window)))
	return l.flushActivityLocked(ctx)
}

// ResetAll wipes every window and the message log. Used by the confirmed
// full-wipe operation only.
func (l *Ledger) ResetAll(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range domain.Windows() {
		l.activity[w] = make(windowMap)
	}
	l.messages = make(store.MessageLog)
	l.logger.Info("all activity data reset")
	if err := l.flushActivityLocked(ctx); err != nil {
		return err
	}
	return l.flushMessagesLocked(ctx)
}

// RecordMessage appends a moderator message to the channel's log. Messages
// for unregistered channels are dropped.
func (l *Ledger) RecordMessage(ctx context.Context, identity int64, displayName string, channelID int64, content string, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.channels[channelID]; !ok {
		return nil
	}
	l.messages[channelID] = append(l.messages[channelID], domain.TicketMessage{
		UserID:    identity,
		Username:  displayName,
		Timestamp: now.UTC(),
		Content:   content,
	})
	return l.flushMessagesLocked(ctx)
}

// Messages returns the logged messages for a channel.
func (l *Ledger) Messages(channelID int64) []domain.TicketMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.TicketMessage(nil), l.messages[channelID]...)
}

// AddChannel registers a ticket channel. Adding a channel that is already
// registered fails with AlreadyTracked; callers may treat that as non-fatal.
func (l *Ledger) AddChannel(ctx context.Context, ch domain.TicketChannel) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.channels[ch.ID]; ok {
		return errorutil.NewAlreadyTracked("channel", ch.ID)
	}
	l.channels[ch.ID] = ch
	l.logger.Info("ticket channel tracked",
		zap.Int64("channel", ch.ID), zap.String("name", ch.Name))
	return l.flushActivityLocked(ctx)
}

// HasChannel reports whether the channel is registered.
func (l *Ledger) HasChannel(id int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.channels[id]
	return ok
}

// Channels returns the registered channels sorted by display name.
func (l *Ledger) Channels() []domain.TicketChannel {
	l.mu.RLock()
	defer l.mu.RUnlock()

	channels := make([]domain.TicketChannel, 0, len(l.channels))
	for _, ch := range l.channels {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].Name == channels[j].Name {
			return channels[i].ID < channels[j].ID
		}
		return channels[i].Name < channels[j].Name
	})
	return channels
}

// PruneChannel removes a channel and cascades: the channel id is swept out
// of every (window, identity, action) set and its message log is deleted, so
// no orphaned references survive. Pruning an absent channel is a no-op.
func (l *Ledger) PruneChannel(ctx context.Context, channelID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.channels[channelID]; !ok {
		return false, nil
	}
	l.pruneLocked(channelID)
	if err := l.flushActivityLocked(ctx); err != nil {
		return true, err
	}
	return true, l.flushMessagesLocked(ctx)
}

// Reconcile checks every registered channel against the liveness predicate
// and prunes the ones reported dead. The predicate runs before the mutation
// lock is taken; an error from it (liveness unknown) is fail-open and never
// prunes. Returns the number of channels removed.
func (l *Ledger) Reconcile(ctx context.Context, isLive func(context.Context, int64) (bool, error)) (int, error) {
	channels := l.Channels()
	dead := make([]int64, 0)
	for _, ch := range channels {
		live, err := isLive(ctx, ch.ID)
		if err != nil {
			l.logger.Warn("channel liveness unknown; keeping channel",
				zap.Int64("channel", ch.ID), zap.Error(err))
			continue
		}
		if !live {
			dead = append(dead, ch.ID)
		}
	}
	if len(dead) == 0 {
		return 0, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for _, id := range dead {
		if _, ok := l.channels[id]; !ok {
			continue
		}
		l.pruneLocked(id)
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	l.logger.Info("pruned dead ticket channels", zap.Int("count", removed))
	if err := l.flushActivityLocked(ctx); err != nil {
		return removed, err
	}
	return removed, l.flushMessagesLocked(ctx)
}

// FlushDirty retries any flush that previously failed. Called by the
// scheduler tick so a transient storage outage heals without waiting for
// the next mutation.
func (l *Ledger) FlushDirty(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.activityDirty {
		if err := l.flushActivityLocked(ctx); err != nil {
			return err
		}
	}
	if l.messagesDirty {
		return l.flushMessagesLocked(ctx)
	}
	return nil
}

func (l *Ledger) insertLocked(window domain.Window, identity int64, kind domain.ActionKind, channelID int64) bool {
	identities := l.activity[window]
	actions, ok := identities[identity]
	if !ok {
		actions = make(map[domain.ActionKind]map[int64]struct{}, len(domain.ActionKinds()))
		identities[identity] = actions
	}
	set, ok := actions[kind]
	if !ok {
		set = make(map[int64]struct{})
		actions[kind] = set
	}
	if _, ok := set[channelID]; ok {
		return false
	}
	set[channelID] = struct{}{}
	return true
}

func (l *Ledger) countsLocked(window domain.Window, identity int64) domain.ActivityCounts {
	actions, ok := l.activity[window][identity]
	if !ok {
		return domain.ActivityCounts{}
	}
	return domain.ActivityCounts{
		Addressed: len(actions[domain.ActionAddressed]),
		Closed:    len(actions[domain.ActionClosed]),
		Deleted:   len(actions[domain.ActionDeleted]),
	}
}

func (l *Ledger) pruneLocked(channelID int64) {
	delete(l.channels, channelID)
	for _, window := range domain.Windows() {
		for identity, actions := range l.activity[window] {
			for kind, set := range actions {
				delete(set, channelID)
				if len(set) == 0 {
					delete(actions, kind)
				}
			}
			if len(actions) == 0 {
				delete(l.activity[window], identity)
			}
		}
	}
	delete(l.messages, channelID)
}

// flushActivityLocked persists the activity document. On failure it retries
// once, then keeps the in-memory mutation, marks the ledger dirty and
// surfaces PersistenceFailure so the caller knows durable state diverged.
func (l *Ledger) flushActivityLocked(ctx context.Context) error {
	snap := l.snapshotLocked()
	err := l.store.SaveActivity(ctx, snap)
	if err != nil {
		err = l.store.SaveActivity(ctx, snap)
	}
	if err != nil {
		l.activityDirty = true
		l.logger.Error("activity flush failed; ledger marked dirty", zap.Error(err))
		return errorutil.NewPersistenceFailure(err)
	}
	l.activityDirty = false
	return nil
}

func (l *Ledger) flushMessagesLocked(ctx context.Context) error {
	err := l.store.SaveMessages(ctx, l.messages)
	if err != nil {
		err = l.store.SaveMessages(ctx, l.messages)
	}
	if err != nil {
		l.messagesDirty = true
		l.logger.Error("message log flush failed; ledger marked dirty", zap.Error(err))
		return errorutil.NewPersistenceFailure(err)
	}
	l.messagesDirty = false
	return nil
}

func (l *Ledger) snapshotLocked() *store.ActivitySnapshot {
	snap := store.NewActivitySnapshot()
	for _, ch := range l.channels {
		snap.Channels = append(snap.Channels, ch)
	}
	for window, identities := range l.activity {
		for identity, actions := range identities {
			perIdentity := make(map[domain.ActionKind][]int64, len(actions))
			for kind, set := range actions {
				ids := make([]int64, 0, len(set))
				for id := range set {
					ids = append(ids, id)
				}
				sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
				perIdentity[kind] = ids
			}
			snap.Activity[window][identity] = perIdentity
		}
	}
	return snap
}
