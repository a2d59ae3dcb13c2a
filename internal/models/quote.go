package models

import "time"

type QuoteStatus string

const (
	QuoteStatusPending   QuoteStatus = "pending"
	QuoteStatusContacted QuoteStatus = "contacted"
	QuoteStatusAccepted  QuoteStatus = "accepted"
	QuoteStatusRejected  QuoteStatus = "rejected"
)

// CanTransition reports whether a quote may move from s to next.
func (s QuoteStatus) CanTransition(next QuoteStatus) bool {
	switch s {
	case QuoteStatusPending:
		return next == QuoteStatusContacted || next == QuoteStatusRejected
	case QuoteStatusContacted:
		return next == QuoteStatusAccepted || next == QuoteStatusRejected
	}
	return false
}

type Quote struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Service   string
	SurfaceM2 float64
	Message   string
	Status    QuoteStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
