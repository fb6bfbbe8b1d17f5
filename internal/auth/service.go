// Package auth issues and validates bearer tokens and manages user accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidshare/backend/internal/apperr"
	"github.com/vidshare/backend/internal/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Store persists users. Implementations return apperr kinds.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
	List(ctx context.Context, search string, limit, offset int) ([]models.UserPublic, int, error)
	Update(ctx context.Context, id uuid.UUID, email, passwordHash *string) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	User        models.UserPublic `json:"user"`
}

// UserPage is one page of a user listing.
type UserPage struct {
	Items []models.UserPublic `json:"items"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// UserUpdate holds the fields a user may change; nil keeps the stored value.
type UserUpdate struct {
	Email    *string
	Password *string
}

// Service implements authentication and account management.
type Service struct {
	store  Store
	jwt    *JWTService
	logger *zap.Logger
}

// NewService creates the auth service.
func NewService(store Store, jwt *JWTService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, jwt: jwt, logger: logger}
}

// CurrentUser resolves a bearer token. Invalid or expired tokens, and tokens of
// deleted users, are ErrUnauthenticated.
func (s *Service) CurrentUser(ctx context.Context, token string) (models.UserPublic, error) {
	claims, err := s.jwt.Validate(token)
	if err != nil {
		return models.UserPublic{}, fmt.Errorf("%w: %v", apperr.ErrUnauthenticated, err)
	}
	u, err := s.store.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.UserPublic{}, fmt.Errorf("%w: account no longer exists", apperr.ErrUnauthenticated)
		}
		return models.UserPublic{}, err
	}
	return u.ToPublic(), nil
}

// Login checks the password of an existing account. An unknown email is
// registered on the spot with the given password.
func (s *Service) Login(ctx context.Context, email, password string) (Token, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Token{}, apperr.Validation("email and password are required")
	}
	u, err := s.store.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		u, err = s.register(ctx, email, password)
		if errors.Is(err, apperr.ErrConflict) {
			// Registered concurrently; fall through to the password check.
			u, err = s.store.GetByEmail(ctx, email)
			if err == nil && !CheckPassword(password, u.Password) {
				return Token{}, invalidCredentials()
			}
		}
		if err != nil {
			return Token{}, err
		}
	case err != nil:
		return Token{}, err
	case !CheckPassword(password, u.Password):
		return Token{}, invalidCredentials()
	}
	return s.issue(u)
}

// Register creates an account. A taken email is ErrConflict.
func (s *Service) Register(ctx context.Context, email, password string) (models.UserPublic, error) {
	email = normalizeEmail(email)
	if email == "" {
		return models.UserPublic{}, apperr.Validation("email is required")
	}
	u, err := s.register(ctx, email, password)
	if err != nil {
		return models.UserPublic{}, err
	}
	return u.ToPublic(), nil
}

func (s *Service) register(ctx context.Context, email, password string) (*models.User, error) {
	if len(password) < MinPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", MinPasswordLen)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.store.Create(ctx, email, hash)
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", apperr.ErrConflict)
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", u.ID.String()))
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.UserPublic, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.UserPublic{}, err
	}
	return u.ToPublic(), nil
}

// List returns a page of users whose email contains search. page starts at 1.
func (s *Service) List(ctx context.Context, search string, page, limit int) (UserPage, error) {
	if page < 0 || limit < 0 {
		return UserPage{}, apperr.Validation("page and limit must not be negative")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	items, total, err := s.store.List(ctx, strings.TrimSpace(search), limit, (page-1)*limit)
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Update changes the caller's own account.
func (s *Service) Update(ctx context.Context, id uuid.UUID, upd UserUpdate, callerID uuid.UUID) (models.UserPublic, error) {
	if id != callerID {
		return models.UserPublic{}, fmt.Errorf("%w: cannot modify another account", apperr.ErrForbidden)
	}
	var email, hash *string
	if upd.Email != nil {
		e := normalizeEmail(*upd.Email)
		if e == "" {
			return models.UserPublic{}, apperr.Validation("email must not be empty")
		}
		email = &e
	}
	if upd.Password != nil {
		if len(*upd.Password) < MinPasswordLen {
			return models.UserPublic{}, apperr.Validation("password must be at least %d characters", MinPasswordLen)
		}
		h, err := HashPassword(*upd.Password)
		if err != nil {
			return models.UserPublic{}, fmt.Errorf("hash password: %w", err)
		}
		hash = &h
	}
	u, err := s.store.Update(ctx, id, email, hash)
	if err != nil {
		return models.UserPublic{}, err
	}
	return u.ToPublic(), nil
}

// Delete removes the caller's own account together with their videos.
func (s *Service) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	if id != callerID {
		return fmt.Errorf("%w: cannot delete another account", apperr.ErrForbidden)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()))
	return nil
}

func (s *Service) issue(u *models.User) (Token, error) {
	tok, err := s.jwt.Generate(u.ID, u.Email)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{AccessToken: tok, TokenType: "bearer", User: u.ToPublic()}, nil
}

func invalidCredentials() error {
	return fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
