package core

import (
	"time"

	"github.com/google/uuid"
)

// DefaultExpiryDate is sent when a student is registered without one.
const DefaultExpiryDate = "2050-01-01T00:00:00.000Z"

// Student is a student record of the European Student Card registry.
type Student struct {
	PIC        string `json:"picInstitutionCode"`
	StudentID  string `json:"europeanStudentIdentifier"`
	Email      string `json:"emailAddress"`
	ExpiryDate string `json:"expiryDate"`
	Name       string `json:"name"`
}

// Card is a student card as listed by the registry.
type Card struct {
	ESCN      string `json:"escn"`
	StudentID string `json:"student_id"`
	CardType  string `json:"card_type,omitempty"`
}

// IssuedCard is a ledger entry for an ESCN issued by this service.
type IssuedCard struct {
	IssueID        string    `json:"issue_id"`
	ESCN           string    `json:"escn"`
	StudentID      string    `json:"student_id"`
	Prefix         string    `json:"prefix"`
	PIC            string    `json:"pic"`
	CardType       string    `json:"card_type"`
	IdempotencyKey string    `json:"idempotency_key"`
	RequestHash    string    `json:"request_hash"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewID generates a UUID v7 (time-ordered).
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
