package domain

import (
	"strings"
	"time"
)

// Status values are free-form strings by convention. Open is the default for
// new tickets; StatusAll is a filter wildcard, never a stored value.
const (
	StatusOpen = "Open"
	StatusAll  = "All"
)

// Sentinel values used when real data is unavailable.
const (
	NoSubject     = "No Subject"
	NoSenderEmail = "No Sender Email"
	UnknownSender = "Unknown Sender"
)

// Ticket is the sole persisted entity: one support request, either
// email-derived or manually entered.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Status      string
	CreatedAt   time.Time
	SenderEmail string
	SenderName  *string
}

// SenderLocalPart derives a display name from an email address: the substring
// before "@". Returns UnknownSender when the address carries no local part.
func SenderLocalPart(address string) string {
	local, _, found := strings.Cut(address, "@")
	if !found || local == "" {
		return UnknownSender
	}
	return local
}
