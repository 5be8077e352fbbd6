package domain

// Window enumerates the independently resetting aggregation periods.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
)

// Windows returns all aggregation windows in canonical order.
func Windows() []Window {
	return []Window{WindowDaily, WindowWeekly, WindowMonthly}
}

// ParseWindow validates a window name supplied by a caller.
func ParseWindow(s string) (Window, bool) {
	switch Window(s) {
	case WindowDaily, WindowWeekly, WindowMonthly:
		return Window(s), true
	}
	return "", false
}

// ActionKind enumerates the trackable moderator actions.
type ActionKind string

const (
	ActionAddressed ActionKind = "addressed"
	ActionClosed    ActionKind = "closed"
	ActionDeleted   ActionKind = "deleted"
)

// ActionKinds returns all action kinds in canonical order.
func ActionKinds() []ActionKind {
	return []ActionKind{ActionAddressed, ActionClosed, ActionDeleted}
}

// ActivityCounts is the per-window aggregate for a single identity. Each
// count is the number of distinct channels the identity acted on.
type ActivityCounts struct {
	Addressed int `json:"addressed"`
	Closed    int `json:"closed"`
	Deleted   int `json:"deleted"`
}

// Zero reports whether no activity was recorded.
func (c ActivityCounts) Zero() bool {
	return c.Addressed == 0 && c.Closed == 0 && c.Deleted == 0
}
