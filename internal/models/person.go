package models

import (
	"encoding/json"
	"time"
)

// Person represents an account holder. Nothing persists people yet; the mock
// auth endpoints build them on the fly.
type Person struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"` // Never expose this to the client
	Name           *string   `json:"name"`
	StageName      *string   `json:"stage_name"`
	ProfileImageID *string   `json:"profile_image_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MockUser is the user shape returned by the mock auth and profile endpoints.
// Email, Name and StageName hold raw JSON so request values are echoed
// unchanged. A nil value encodes as null.
type MockUser struct {
	ID                string          `json:"id"`
	Username          string          `json:"username"`
	Email             json.RawMessage `json:"email"`
	Name              json.RawMessage `json:"name"`
	StageName         json.RawMessage `json:"stage_name"`
	VerificationLevel int             `json:"verification_level"`
}

// PersonID builds the record id used for a username, e.g. "person:alice".
func PersonID(username string) string {
	return "person:" + username
}
