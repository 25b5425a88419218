package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/canteen/authz"
	"github.com/ray-remotestate/canteen/models"
	"github.com/ray-remotestate/canteen/utils"
)

const minPasswordLength = 6

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type UserService struct {
	users  UserRepo
	carts  *CartService
	secret []byte
	log    logrus.FieldLogger
}

func NewUserService(users UserRepo, carts *CartService, secret []byte, log logrus.FieldLogger) *UserService {
	return &UserService{users: users, carts: carts, secret: secret, log: log}
}

// Register creates a customer account and signs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (models.User, Tokens, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case name == "" || email == "" || in.Password == "":
		return models.User{}, Tokens{}, invalid("name, email and password are required")
	case len(in.Password) < minPasswordLength:
		return models.User{}, Tokens{}, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return models.User{}, Tokens{}, invalid("email is not valid")
	}

	exists, err := s.users.IsUserExists(ctx, email)
	if err != nil {
		return models.User{}, Tokens{}, fmt.Errorf("check user existence: %w", err)
	}
	if exists {
		return models.User{}, Tokens{}, models.ErrEmailTaken
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, Tokens{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, name, email, strings.TrimSpace(in.Phone), hashed, models.RoleUser)
	if err != nil {
		return models.User{}, Tokens{}, err
	}

	tokens, err := s.issue(user)
	if err != nil {
		return models.User{}, Tokens{}, err
	}
	return user, tokens, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (models.User, Tokens, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, Tokens{}, invalid("email and password required")
	}

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, models.ErrUserNotFound) {
		return models.User{}, Tokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, Tokens{}, err
	}
	if !utils.CheckPassword(user.Password, password) {
		return models.User{}, Tokens{}, ErrInvalidCredentials
	}
	if len(user.Roles) == 0 {
		return models.User{}, Tokens{}, authz.ErrForbidden
	}

	tokens, err := s.issue(user)
	if err != nil {
		return models.User{}, Tokens{}, err
	}
	return user, tokens, nil
}

// Refresh exchanges a refresh token for a new pair. Roles are re-read so a
// demoted or archived user cannot keep refreshing.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	userID, err := utils.ParseRefreshToken(s.secret, refreshToken)
	if err != nil {
		return Tokens{}, authz.ErrUnauthenticated
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, models.ErrUserNotFound) {
		return Tokens{}, authz.ErrUnauthenticated
	}
	if err != nil {
		return Tokens{}, err
	}
	return s.issue(user)
}

func (s *UserService) List(ctx context.Context, p authz.Principal) ([]models.User, error) {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *UserService) Archive(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := authz.Check(p, authz.Admin, uuid.Nil); err != nil {
		return err
	}
	if id == p.UserID {
		return invalid("you cannot archive your own account")
	}
	if err := s.users.Archive(ctx, id); err != nil {
		return err
	}
	if err := s.carts.Discard(ctx, id); err != nil {
		s.log.WithError(err).WithField("user_id", id).Warn("failed to drop archived user's cart")
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account unless the email is
// already registered.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	exists, err := s.users.IsUserExists(ctx, email)
	if err != nil {
		return fmt.Errorf("check admin existence: %w", err)
	}
	if exists {
		return nil
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.users.Create(ctx, name, strings.ToLower(email), "", hashed, models.RoleAdmin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.WithField("email", email).Info("bootstrap admin created")
	return nil
}

func (s *UserService) issue(user models.User) (Tokens, error) {
	access, refresh, err := utils.GenerateTokens(s.secret, user.ID, user.Roles)
	if err != nil {
		return Tokens{}, fmt.Errorf("generate tokens: %w", err)
	}
	return Tokens{AccessToken: access, RefreshToken: refresh}, nil
}
