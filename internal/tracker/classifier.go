package tracker

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spec-kit/ticket-activity/internal/domain"
	"github.com/spec-kit/ticket-activity/internal/registry"
)

// Signal substrings emitted by the ticketing bots.
const (
	closedSignal  = "closed the ticket"
	deletedSignal = "deleted the ticket"
)

// mentionPattern matches the platform's canonical mention syntax, including
// the legacy nickname form with "!".
var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// Classification is the result of classifying an inbound message: either a
// moderator activity to record, or nothing.
type Classification struct {
	Activity  bool
	Identity  int64
	ChannelID int64
	Kind      domain.ActionKind
}

// Ignore is the empty classification.
var Ignore = Classification{}

// channelLookup is the read-only view of the channel registry the
// classifier needs.
type channelLookup interface {
	HasChannel(id int64) bool
}

// Classifier decides whether an inbound message is trackable moderator
// activity or a source-bot signal naming a tracked identity. It is a pure
// function of its inputs plus read-only registry lookups and never mutates
// the ledger.
type Classifier struct {
	identities *registry.Identities
	channels   channelLookup
}

// NewClassifier constructs a classifier over the given registries.
func NewClassifier(identities *registry.Identities, channels channelLookup) *Classifier {
	return &Classifier{identities: identities, channels: channels}
}

// Classify applies the decision rules in priority order.
func (c *Classifier) Classify(msg domain.InboundMessage) Classification {
	if !msg.AuthorIsSource {
		if !c.identities.IsTracked(msg.AuthorID) {
			return Ignore
		}
		if !c.channels.HasChannel(msg.ChannelID) {
			return Ignore
		}
		return Classification{
			Activity:  true,
			Identity:  msg.AuthorID,
			ChannelID: msg.ChannelID,
			Kind:      domain.ActionAddressed,
		}
	}

	// Source signals only count inside registered ticket channels; anything
	// a source bot says elsewhere is noise.
	if !c.channels.HasChannel(msg.ChannelID) {
		return Ignore
	}
	kind, ok := signalKind(msg.Content)
	if !ok {
		return Ignore
	}
	identity, ok := c.resolveTarget(msg)
	if !ok {
		// Signal pattern matched but no identity resolvable: degrade to
		// ignore, not an error.
		return Ignore
	}
	return Classification{
		Activity:  true,
		Identity:  identity,
		ChannelID: msg.ChannelID,
		Kind:      kind,
	}
}

// signalKind scans the text case-insensitively for the closure signals.
func signalKind(content string) (domain.ActionKind, bool) {
	lowered := strings.ToLower(content)
	if strings.Contains(lowered, closedSignal) {
		return domain.ActionClosed, true
	}
	if strings.Contains(lowered, deletedSignal) {
		return domain.ActionDeleted, true
	}
	return "", false
}

// resolveTarget finds the tracked identity the signal names, preferring the
// explicit mention list and falling back to the first mention token in the
// text for older message formats.
func (c *Classifier) resolveTarget(msg domain.InboundMessage) (int64, bool) {
	for _, id := range msg.MentionedIDs {
		if c.identities.IsTracked(id) {
			return id, true
		}
	}
	if len(msg.MentionedIDs) > 0 {
		return 0, false
	}

	match := mentionPattern.FindStringSubmatch(msg.Content)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	if !c.identities.IsTracked(id) {
		return 0, false
	}
	return id, true
}
