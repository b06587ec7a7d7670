package portal

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointment-portal/internal/backend"
	"appointment-portal/internal/model"
)

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Login finds the user by email in the user service's list. Passwords are
// owned by the user service, which exposes no check for them.
func (s *Service) Login(ctx context.Context, c Credentials) (model.User, error) {
	c.Email = strings.TrimSpace(c.Email)
	if err := s.valid.Struct(c); err != nil {
		return model.User{}, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		s.log.Error("login: listing users", err)
		return model.User{}, status.Error(codes.Unavailable, "Login failed. Please try again.")
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, c.Email) {
			return u, nil
		}
	}
	return model.User{}, status.Error(codes.Unauthenticated, "Invalid email or password")
}

type Registration struct {
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"firstName" validate:"required,min=2"`
	LastName        string `json:"lastName" validate:"required,min=2"`
	Username        string `json:"username"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	RoleID          int    `json:"roleId" validate:"signup_role"`
}

// Register creates a pending account. Admin accounts cannot be requested.
func (s *Service) Register(ctx context.Context, r Registration) (model.User, error) {
	r.Email = strings.TrimSpace(r.Email)
	if err := s.valid.Struct(r); err != nil {
		return model.User{}, err
	}
	u, err := s.users.Create(ctx, backend.NewUser{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Username:  r.Username,
		RoleID:    r.RoleID,
	})
	if err != nil {
		return model.User{}, s.fail(err, "Registration failed. Please try again.")
	}
	return u, nil
}
