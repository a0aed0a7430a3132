package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/config"
	"freelancehub/pkg/rbac"
	"freelancehub/pkg/util"
)

const (
	minPasswordLen = 8
	verifyTokenTTL = 24 * time.Hour
)

type AuthService struct {
	store  repository.Store
	tokens repository.VerificationTokens
	jwt    config.JWTConfig
	logger *zap.Logger
}

func NewAuthService(store repository.Store, tokens repository.VerificationTokens, jwt config.JWTConfig, logger *zap.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, jwt: jwt, logger: logger}
}

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (in *RegisterInput) normalize() error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Password == "" || in.Name == "" || in.Role == "" {
		return invalid("email, password, name and role are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return invalid("password must be at least %d characters", minPasswordLen)
	}
	if in.Role != model.RoleClient && in.Role != model.RoleFreelancer {
		return invalid("role must be client or freelancer")
	}
	return nil
}

// Register creates an unverified user and records a user.registered event carrying the verification token.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	hash, err := util.HashPassword(in.Password)
	if errors.Is(err, util.ErrPasswordTooLong) {
		return nil, invalid("%s", err.Error())
	}
	if err != nil {
		return nil, err
	}

	u := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("email already registered")
			}
			return fromRepo(err, "user")
		}
		token, err := s.tokens.Issue(ctx, u.ID, verifyTokenTTL)
		if err != nil {
			return err
		}
		return recordEvent(ctx, tx, "user", u.ID, mqcontracts.EventUserRegistered, mqcontracts.UserRegisteredPayload{
			UserID:            u.ID,
			Email:             u.Email,
			Name:              u.Name,
			VerificationToken: token,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.Int64("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return invalid("token is required")
	}
	userID, err := s.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("invalid or expired verification token")
		}
		return err
	}
	if err := s.store.Users().SetVerified(ctx, userID); err != nil {
		return fromRepo(err, "user")
	}
	s.logger.Info("Email verified", zap.Int64("user_id", userID))
	return nil
}

// Login checks credentials and returns a signed JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, newError(ErrUnauthorized, "invalid email or password")
		}
		return "", nil, err
	}
	if !util.CheckPassword(password, u.PasswordHash) {
		return "", nil, newError(ErrUnauthorized, "invalid email or password")
	}

	token, err := util.GenerateJWT(u.ID, u.Role, u.Verified, s.jwt.Secret, s.jwt.TTL)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Authenticate resolves a token to a caller.
func (s *AuthService) Authenticate(token string) (rbac.Caller, error) {
	claims, err := util.ParseJWT(token, s.jwt.Secret)
	if err != nil {
		return rbac.Caller{}, newError(ErrUnauthorized, "invalid token")
	}
	if s.jwt.RequireVerified && !claims.Verified {
		return rbac.Caller{}, newError(ErrUnauthorized, "email not verified")
	}
	return rbac.Caller{ID: claims.UserID, Role: claims.Role, Verified: claims.Verified}, nil
}
