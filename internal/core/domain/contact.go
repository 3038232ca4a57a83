package domain

import "time"

// ContactMessage is one entry in the append-only contact log. Messages are
// independent of accounts and never updated after insertion.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Body      string
	CreatedAt time.Time
}
