package models

import "encoding/json"

// RegisterRequest is the body of POST /api/auth/register. Every field is
// optional for the mock. Email, Name and StageName are echoed back as sent,
// whatever their JSON type.
type RegisterRequest struct {
	Username  *string
	Password  *string
	Email     json.RawMessage
	Name      json.RawMessage
	StageName json.RawMessage
}

func (r *RegisterRequest) UnmarshalJSON(data []byte) error {
	f := decodeFields(data)
	*r = RegisterRequest{
		Username:  f.str("username"),
		Password:  f.str("password"),
		Email:     f.raw("email"),
		Name:      f.raw("name"),
		StageName: f.raw("stage_name"),
	}
	return nil
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username *string
	Password *string
}

func (r *LoginRequest) UnmarshalJSON(data []byte) error {
	f := decodeFields(data)
	*r = LoginRequest{Username: f.str("username"), Password: f.str("password")}
	return nil
}

// CheckUsernameRequest is the body of POST /api/auth/check-username.
type CheckUsernameRequest struct {
	Username *string
}

func (r *CheckUsernameRequest) UnmarshalJSON(data []byte) error {
	*r = CheckUsernameRequest{Username: decodeFields(data).str("username")}
	return nil
}

// UpdateProfileRequest is the body of PUT /api/profile. Both fields are
// echoed back as sent.
type UpdateProfileRequest struct {
	Name      json.RawMessage
	StageName json.RawMessage
}

func (r *UpdateProfileRequest) UnmarshalJSON(data []byte) error {
	f := decodeFields(data)
	*r = UpdateProfileRequest{Name: f.raw("name"), StageName: f.raw("stage_name")}
	return nil
}

// AuthResponse carries the issued token and the user it belongs to.
type AuthResponse struct {
	Token string   `json:"token"`
	User  MockUser `json:"user"`
}

// AvailabilityResponse is the body of POST /api/auth/check-username.
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

// fields holds the members of a request object. A member of the wrong type
// reads as absent, and so does every member of a body that is not an object.
type fields map[string]json.RawMessage

func decodeFields(data []byte) fields {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return f
}

func (f fields) str(key string) *string {
	return StringValue(f[key])
}

func (f fields) raw(key string) json.RawMessage {
	v, ok := f[key]
	if !ok || string(v) == "null" {
		return nil
	}
	return v
}

// StringValue returns the string held by a raw JSON value, or nil when the
// value is missing or not a string.
func StringValue(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// JSONString encodes s as a raw JSON string.
func JSONString(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}
