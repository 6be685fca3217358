package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/arturoeanton/go-mini-rag/internal/adapter/store"
	"github.com/arturoeanton/go-mini-rag/internal/domain"
	"github.com/arturoeanton/go-mini-rag/internal/port"
)

// AuthConfig holds JWT signing parameters.
type AuthConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// RegisterInput carries the fields for a new account.
type RegisterInput struct {
	Username string
	Password string
	Email    string
	FullName string
	Role     string
}

// AuthService issues and verifies bearer tokens against the in-memory
// user store.
type AuthService struct {
	users *store.UserStore
	cfg   AuthConfig
	log   *zap.Logger
}

// NewAuthService creates an auth service over the given user store.
func NewAuthService(users *store.UserStore, cfg AuthConfig, log *zap.Logger) *AuthService {
	return &AuthService{users: users, cfg: cfg, log: log}
}

// Login verifies the credentials and returns a signed HS256 access token
// plus its lifetime in seconds.
func (s *AuthService) Login(username, password string) (string, int, error) {
	user, err := s.users.Get(username)
	if err != nil {
		return "", 0, port.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", 0, port.ErrUnauthorized
	}
	if !user.IsActive {
		return "", 0, port.ErrUnauthorized
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.Username,
		"role": user.Role,
		"iss":  s.cfg.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.Expiration).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", 0, fmt.Errorf("sign token: %w", err)
	}

	s.log.Info("user logged in", zap.String("username", username))
	return token, int(s.cfg.Expiration.Seconds()), nil
}

// Logout revokes a token for the remainder of the process lifetime.
func (s *AuthService) Logout(token string) {
	s.users.Blacklist(token)
}

// Authenticate verifies a bearer token and resolves it to a user context.
// Blacklisted, expired, malformed, and wrong-issuer tokens are rejected,
// as are tokens for missing or deactivated accounts.
func (s *AuthService) Authenticate(tokenStr string) (*domain.UserContext, error) {
	if s.users.IsBlacklisted(tokenStr) {
		return nil, port.ErrTokenInvalid
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, port.ErrTokenExpired
		}
		return nil, port.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, port.ErrTokenInvalid
	}
	username, _ := claims["sub"].(string)
	if username == "" {
		return nil, port.ErrTokenInvalid
	}

	user, err := s.users.Get(username)
	if err != nil || !user.IsActive {
		return nil, port.ErrUnauthorized
	}

	return &domain.UserContext{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

// Register creates a new account with a bcrypt-hashed password.
func (s *AuthService) Register(in RegisterInput) (domain.User, error) {
	role := in.Role
	if role == "" {
		role = "user"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(domain.User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		Role:         role,
		IsActive:     true,
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.User{}, err
	}

	s.log.Info("user registered", zap.String("username", user.Username), zap.String("role", user.Role))
	return user, nil
}

// GetUser looks up an account by username.
func (s *AuthService) GetUser(username string) (domain.User, error) {
	return s.users.Get(username)
}

// UpdateUser applies a patch to an existing account.
func (s *AuthService) UpdateUser(username string, patch domain.UserPatch) (domain.User, error) {
	return s.users.Update(username, patch)
}

// DeleteUser removes an account.
func (s *AuthService) DeleteUser(username string) error {
	return s.users.Delete(username)
}
