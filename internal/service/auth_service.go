package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/config"
	"github.com/ishpreet160/CertFlow/internal/directory"
	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/notification"
	"github.com/ishpreet160/CertFlow/internal/repository"
	"github.com/ishpreet160/CertFlow/internal/token"
)

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	ForgotPassword(ctx context.Context, req dto.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, rawToken string, req dto.ResetPasswordRequest) error
	Profile(ctx context.Context, c identity.Claim) (*dto.UserResponse, error)
}

type authService struct {
	users    repository.UserRepository
	dir      *directory.Directory
	tokens   *token.Issuer
	notifier *notification.Notifier
	cfg      *config.Config
}

func NewAuthService(users repository.UserRepository, dir *directory.Directory, tokens *token.Issuer, notifier *notification.Notifier, cfg *config.Config) AuthService {
	return &authService{users: users, dir: dir, tokens: tokens, notifier: notifier, cfg: cfg}
}

// Register always creates an employee. Elevated roles go through UserService.
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserResponse, error) {
	managerID, err := parseOptionalUUID("manager_id", req.ManagerID)
	if err != nil {
		return nil, err
	}
	u, err := createUser(ctx, s.users, s.dir, newUser{
		Name: req.Name, Email: req.Email, Password: req.Password,
		Role: identity.RoleEmployee, ManagerID: managerID,
	})
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(u)
	return &resp, nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierror.Unauthorized("invalid credentials")
	}

	accessToken, err := s.tokens.IssueAccess(user.Claim())
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokens.AccessTTL().Seconds()),
		User:        toUserResponse(user),
	}, nil
}

func (s *authService) ForgotPassword(ctx context.Context, req dto.ForgotPasswordRequest) error {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return notFound(err, "no account registered with that email")
	}
	raw, err := s.tokens.IssuePasswordReset(user.ID)
	if err != nil {
		return err
	}
	s.notifier.PasswordReset(notification.Recipient{Name: user.Name, Email: user.Email}, raw, s.cfg.PasswordResetMinutes)
	log.Info().Str("user_id", user.ID.String()).Msg("password reset requested")
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, rawToken string, req dto.ResetPasswordRequest) error {
	userID, err := s.tokens.ParsePasswordReset(rawToken)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, "user not found")
	}
	if !user.Active {
		return apierror.Forbidden("account is deactivated")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, user.ID, hash)
}

func (s *authService) Profile(ctx context.Context, c identity.Claim) (*dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, c.UserID)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	resp := toUserResponse(user)
	return &resp, nil
}
