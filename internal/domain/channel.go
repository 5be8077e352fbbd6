package domain

import "strings"

// TicketChannel is a conversation channel designated for tracked
// support-ticket activity.
type TicketChannel struct {
	ID      int64
	Name    string
	GuildID int64
}

// IsTicketShaped reports whether a channel name matches the ticket naming
// convention used by the ticketing bots (name contains a "-" separator).
func IsTicketShaped(name string) bool {
	return strings.Contains(name, "-")
}
