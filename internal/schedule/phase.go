package schedule

import "time"

// SessionPhase is the temporal state of an accepted consultation's video
// session relative to "now".
type SessionPhase string

const (
	PhaseNotStarted SessionPhase = "not_started"
	PhaseActive     SessionPhase = "active"
	PhaseExpired    SessionPhase = "expired"
)

// SessionWindow is how long an accepted consultation's join link stays valid
// past its scheduled time.
const SessionWindow = time.Hour

// GracePeriod is how long a counselor may still respond to a pending request
// past its scheduled time before automatic rejection.
const GracePeriod = 10 * time.Minute

// ClassifySession computes the video-session phase for an accepted
// consultation scheduled at t. Pure function of its inputs; callers must
// re-evaluate on every read because "now" advances independently of any
// stored state.
func ClassifySession(scheduled, now time.Time) SessionPhase {
	switch {
	case now.Before(scheduled):
		return PhaseNotStarted
	case now.After(scheduled.Add(SessionWindow)):
		return PhaseExpired
	default:
		return PhaseActive
	}
}

// GraceExpired reports whether a pending request scheduled at t has outlived
// its grace period.
func GraceExpired(scheduled, now time.Time) bool {
	return now.After(scheduled.Add(GracePeriod))
}

// SlotElapsed reports whether a bare, unbooked slot scheduled at t is no
// longer usable. No grace period applies.
func SlotElapsed(scheduled, now time.Time) bool {
	return now.After(scheduled)
}
