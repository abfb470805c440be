package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegisterRequest struct {
	Name      string  `json:"name"       validate:"required,min=2,max=100"`
	Email     string  `json:"email"      validate:"required,email,max=120"`
	Password  string  `json:"password"   validate:"required,min=8"`
	ManagerID *string `json:"manager_id" validate:"omitempty,uuid"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type CreateUserRequest struct {
	Name      string  `json:"name"       validate:"required,min=2,max=100"`
	Email     string  `json:"email"      validate:"required,email,max=120"`
	Password  string  `json:"password"   validate:"required,min=8"`
	Role      string  `json:"role"       validate:"required,oneof=manager employee"`
	ManagerID *string `json:"manager_id" validate:"omitempty,uuid"`
}

// AssignManagerRequest moves a user under another manager; a null manager_id
// makes the user top-level.
type AssignManagerRequest struct {
	ManagerID *string `json:"manager_id" validate:"omitempty,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	ManagerID *string `json:"manager_id"`
	Active    bool    `json:"active"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // seconds
	User        UserResponse `json:"user"`
}

type ManagerOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
