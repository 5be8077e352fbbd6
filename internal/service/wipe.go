package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-activity/internal/events"
	"github.com/spec-kit/ticket-activity/pkg/util/errorutil"
)

// RequestWipe starts the destructive full-wipe flow. The returned token
// must be echoed back via ConfirmWipe before the deadline; otherwise the
// request expires and nothing is mutated. Only one request is pending at a
// time; a new request replaces the previous one.
func (s *TrackerService) RequestWipe() (string, time.Time) {
	s.wipeMu.Lock()
	defer s.wipeMu.Unlock()

	s.wipeToken = uuid.NewString()
	s.wipeDeadline = s.clock.Now().Add(s.wipeWindow)
	return s.wipeToken, s.wipeDeadline
}

// ConfirmWipe executes the wipe if the token matches an unexpired request.
// A late or mismatched confirmation is a no-op error: no state changes.
func (s *TrackerService) ConfirmWipe(ctx context.Context, token string) error {
	s.wipeMu.Lock()
	defer s.wipeMu.Unlock()

	if s.wipeToken == "" || token != s.wipeToken {
		return errorutil.NewValidationError("no matching wipe request", nil)
	}
	if s.clock.Now().After(s.wipeDeadline) {
		s.wipeToken = ""
		return errorutil.NewConflict("wipe confirmation window elapsed", nil)
	}
	s.wipeToken = ""

	if err := s.ledger.ResetAll(ctx); err != nil {
		return err
	}
	s.publish(ctx, events.EventDataWiped, nil)
	return nil
}
