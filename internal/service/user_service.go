package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/directory"
	"github.com/ishpreet160/CertFlow/internal/dto"
	"github.com/ishpreet160/CertFlow/internal/identity"
	"github.com/ishpreet160/CertFlow/internal/model"
	"github.com/ishpreet160/CertFlow/internal/policy"
	"github.com/ishpreet160/CertFlow/internal/repository"
)

// bcryptCost is lowered by tests.
var bcryptCost = 12

// HashPassword returns the bcrypt hash stored for a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type UserService interface {
	CreateUser(ctx context.Context, c identity.Claim, req dto.CreateUserRequest) (*dto.UserResponse, error)
	// SeedAdmin creates the admin account unless the e-mail is already taken.
	SeedAdmin(ctx context.Context, name, email, password string) (*dto.UserResponse, bool, error)
	ListEligibleManagers(ctx context.Context) ([]dto.ManagerOption, error)
	Team(ctx context.Context, c identity.Claim) ([]dto.UserResponse, error)
	AssignManager(ctx context.Context, c identity.Claim, userID uuid.UUID, req dto.AssignManagerRequest) (*dto.UserResponse, error)
	SetActive(ctx context.Context, c identity.Claim, userID uuid.UUID, active bool) (*dto.UserResponse, error)
}

type userService struct {
	users repository.UserRepository
	dir   *directory.Directory
	gate  *policy.Gate
}

func NewUserService(users repository.UserRepository, dir *directory.Directory, gate *policy.Gate) UserService {
	return &userService{users: users, dir: dir, gate: gate}
}

// newUser is the registration path shared by self sign-up, privileged
// creation and the admin seed.
type newUser struct {
	Name      string
	Email     string
	Password  string
	Role      identity.Role
	ManagerID *uuid.UUID
}

func createUser(ctx context.Context, users repository.UserRepository, dir *directory.Directory, in newUser) (*model.User, error) {
	if err := dir.ValidateManager(ctx, uuid.Nil, in.ManagerID); err != nil {
		return nil, err
	}
	taken, err := users.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apierror.Conflict("email already registered")
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		ManagerID:    in.ManagerID,
		Active:       true,
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict("email already registered")
		}
		return nil, err
	}
	log.Info().Str("user_id", u.ID.String()).Str("role", u.Role.String()).Msg("user created")
	return u, nil
}

func (s *userService) CreateUser(ctx context.Context, c identity.Claim, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.CreateUser, nil); err != nil {
		return nil, err
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil || role == identity.RoleAdmin {
		return nil, apierror.FieldErrors(map[string]string{"role": "must be manager or employee"})
	}
	if c.Role == identity.RoleManager && role != identity.RoleEmployee {
		return nil, apierror.Forbidden("managers can only create employees")
	}
	managerID, err := parseOptionalUUID("manager_id", req.ManagerID)
	if err != nil {
		return nil, err
	}
	if managerID == nil && c.Role == identity.RoleManager {
		id := c.UserID
		managerID = &id
	}

	u, err := createUser(ctx, s.users, s.dir, newUser{
		Name: req.Name, Email: req.Email, Password: req.Password, Role: role, ManagerID: managerID,
	})
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(u)
	return &resp, nil
}

func (s *userService) SeedAdmin(ctx context.Context, name, email, password string) (*dto.UserResponse, bool, error) {
	if existing, err := s.users.FindByEmail(ctx, email); err == nil {
		resp := toUserResponse(existing)
		return &resp, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	u, err := createUser(ctx, s.users, s.dir, newUser{
		Name: name, Email: email, Password: password, Role: identity.RoleAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	resp := toUserResponse(u)
	return &resp, true, nil
}

func (s *userService) ListEligibleManagers(ctx context.Context) ([]dto.ManagerOption, error) {
	entries, err := s.dir.ListEligibleManagers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ManagerOption, len(entries))
	for i, e := range entries {
		out[i] = dto.ManagerOption{ID: e.ID.String(), Name: e.Name, Role: e.Role.String()}
	}
	return out, nil
}

func (s *userService) Team(ctx context.Context, c identity.Claim) ([]dto.UserResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.ListTeam, nil); err != nil {
		return nil, err
	}
	members, err := s.dir.TeamMembers(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, len(members))
	for i := range members {
		out[i] = toUserResponse(&members[i])
	}
	return out, nil
}

func (s *userService) AssignManager(ctx context.Context, c identity.Claim, userID uuid.UUID, req dto.AssignManagerRequest) (*dto.UserResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.ManageUsers, nil); err != nil {
		return nil, err
	}
	managerID, err := parseOptionalUUID("manager_id", req.ManagerID)
	if err != nil {
		return nil, err
	}
	if err := s.dir.AssignManager(ctx, userID, managerID); err != nil {
		return nil, err
	}
	return s.reload(ctx, userID)
}

func (s *userService) SetActive(ctx context.Context, c identity.Claim, userID uuid.UUID, active bool) (*dto.UserResponse, error) {
	if err := s.gate.Authorize(ctx, c, policy.ManageUsers, nil); err != nil {
		return nil, err
	}
	if userID == c.UserID && !active {
		return nil, apierror.Validation("you cannot deactivate your own account")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, notFound(err, "user not found")
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return nil, err
	}
	return s.reload(ctx, userID)
}

func (s *userService) reload(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	resp := toUserResponse(u)
	return &resp, nil
}
