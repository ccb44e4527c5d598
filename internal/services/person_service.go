package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/slatehub-api/internal/auth"
	"github.com/isdelr/slatehub-api/internal/models"
)

// ErrUserNotFound is returned for the simulated missing user.
var ErrUserNotFound = errors.New("user not found")

const (
	defaultRegisterUsername = "new_user"
	defaultLoginUsername    = "test_user"
	currentUsername         = "current_user"
	currentUserID           = "person:current_user_id"
)

// usernames the mock treats as taken, compared case-insensitively.
var reservedUsernames = map[string]struct{}{
	"admin": {},
	"test":  {},
	"root":  {},
}

// PersonServiceProvider defines the interface for the mock person endpoints.
type PersonServiceProvider interface {
	Register(req models.RegisterRequest) (models.Person, models.MockUser, error)
	Login(req models.LoginRequest) models.MockUser
	CurrentUser(username string) models.MockUser
	UpdateProfile(req models.UpdateProfileRequest) models.MockUser
	PublicProfile(username string) (models.MockUser, error)
	UsernameAvailable(username string) bool
}

// MockPersonService synthesizes people without any backing store. It stands
// in until accounts are persisted.
type MockPersonService struct {
	now func() time.Time
}

// NewMockPersonService creates a new MockPersonService.
func NewMockPersonService() *MockPersonService {
	return &MockPersonService{now: time.Now}
}

// Register builds the person a registration would create. The password is
// hashed into the returned Person and never leaves the server.
func (s *MockPersonService) Register(req models.RegisterRequest) (models.Person, models.MockUser, error) {
	username := valueOr(req.Username, defaultRegisterUsername)
	now := s.now().UTC()

	person := models.Person{
		ID:        models.PersonID(username),
		Username:  username,
		Email:     valueOr(models.StringValue(req.Email), ""),
		Name:      models.StringValue(req.Name),
		StageName: models.StringValue(req.StageName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return models.Person{}, models.MockUser{}, fmt.Errorf("failed to hash password: %w", err)
		}
		person.PasswordHash = hash
	}

	user := models.MockUser{
		ID:                person.ID,
		Username:          username,
		Email:             req.Email,
		Name:              req.Name,
		StageName:         req.StageName,
		VerificationLevel: 1,
	}
	return person, user, nil
}

// Login returns the canned test user under the requested name.
func (s *MockPersonService) Login(req models.LoginRequest) models.MockUser {
	username := valueOr(req.Username, defaultLoginUsername)
	return models.MockUser{
		ID:                models.PersonID(username),
		Username:          username,
		Email:             models.JSONString(username + "@example.com"),
		Name:              models.JSONString("Test User"),
		StageName:         models.JSONString("The Tester"),
		VerificationLevel: 1,
	}
}

// CurrentUser returns the signed-in user. An empty username yields the
// static current user.
func (s *MockPersonService) CurrentUser(username string) models.MockUser {
	if username == "" {
		return models.MockUser{
			ID:                currentUserID,
			Username:          currentUsername,
			Email:             models.JSONString("current@example.com"),
			Name:              models.JSONString("Current User"),
			StageName:         models.JSONString("The Current One"),
			VerificationLevel: 2,
		}
	}
	return models.MockUser{
		ID:                models.PersonID(username),
		Username:          username,
		Email:             models.JSONString(username + "@example.com"),
		Name:              models.JSONString("Current User"),
		StageName:         models.JSONString("The Current One"),
		VerificationLevel: 2,
	}
}

// UpdateProfile echoes the new display fields onto the current user.
func (s *MockPersonService) UpdateProfile(req models.UpdateProfileRequest) models.MockUser {
	user := s.CurrentUser("")
	user.Name = req.Name
	user.StageName = req.StageName
	return user
}

// PublicProfile fabricates a profile for any username except "notfound".
func (s *MockPersonService) PublicProfile(username string) (models.MockUser, error) {
	if strings.EqualFold(username, "notfound") {
		return models.MockUser{}, ErrUserNotFound
	}
	return models.MockUser{
		ID:                models.PersonID(username),
		Username:          username,
		Email:             models.JSONString(username + "@example.com"),
		Name:              models.JSONString(strings.ToUpper(username)),
		StageName:         models.JSONString("The Great " + username),
		VerificationLevel: 1,
	}, nil
}

// UsernameAvailable reports false for the reserved names.
func (s *MockPersonService) UsernameAvailable(username string) bool {
	_, taken := reservedUsernames[strings.ToLower(username)]
	return !taken
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
