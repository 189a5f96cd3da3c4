package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/parisxmas/lodgeforms/internal/auth"
)

var (
	ErrAdminDisabled      = errors.New("admin access disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService issues admin tokens for reading the stored collections. It is
// disabled when no admin username is configured.
type AuthService struct {
	username  string
	password  string // bcrypt hash or plain secret
	jwtSecret string
	now       func() time.Time
}

func NewAuthService(username, password, jwtSecret string) *AuthService {
	return &AuthService{username: username, password: password, jwtSecret: jwtSecret, now: time.Now}
}

func (s *AuthService) Enabled() bool {
	return s != nil && s.username != ""
}

func (s *AuthService) Secret() string {
	return s.jwtSecret
}

func (s *AuthService) Login(username, password string) (string, error) {
	if !s.Enabled() {
		return "", ErrAdminDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := auth.CheckPassword(password, s.password)
	if !userOK || !passOK {
		return "", ErrInvalidCredentials
	}
	return auth.GenerateToken(s.jwtSecret, s.username, s.now())
}
