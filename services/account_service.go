package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postboard/apperrors"
	"postboard/auth"
	"postboard/database"
	"postboard/models"
	"postboard/validation"

	"golang.org/x/crypto/bcrypt"
)

// Session is what a successful registration or sign-in hands back.
type Session struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expiresAt"`
	User      models.AuthorSummary `json:"user"`
}

type AccountService struct {
	users  database.UserRepository
	tokens *auth.TokenService
	cost   int
}

func NewAccountService(users database.UserRepository, tokens *auth.TokenService) *AccountService {
	return &AccountService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Register creates a user and signs them in.
func (s *AccountService) Register(ctx context.Context, creds validation.Credentials) (Session, error) {
	if err := validation.ValidateCredentials(creds); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, creds.Username, string(hash))
	if err != nil {
		return Session{}, err
	}
	return s.session(*user)
}

// Authenticate checks a username and password and issues a token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, creds validation.Credentials) (Session, error) {
	user, err := s.users.FindByUsername(ctx, creds.Username)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		return Session{}, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return Session{}, apperrors.ErrInvalidCredentials
	}
	return s.session(*user)
}

func (s *AccountService) session(user models.User) (Session, error) {
	token, err := s.tokens.Issue(auth.Identity{ID: user.ID.Hex(), Username: user.Username})
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokens.TTL()).UTC(),
		User:      user.Summary(),
	}, nil
}
