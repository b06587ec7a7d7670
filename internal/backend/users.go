package backend

import (
	"context"
	"fmt"

	"appointment-portal/internal/model"
)

type Users struct{ c *client }

type roleDTO struct {
	RoleID   int    `json:"roleId"`
	RoleName string `json:"roleName"`
}

type userDTO struct {
	UserID         int64   `json:"userId"`
	Email          string  `json:"email"`
	FirstName      string  `json:"firstName"`
	LastName       string  `json:"lastName"`
	Username       string  `json:"username,omitempty"`
	Role           roleDTO `json:"role"`
	InstructorName string  `json:"instructorName,omitempty"`
}

func (d userDTO) model() model.User {
	return model.User{
		ID:             d.UserID,
		Email:          d.Email,
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Username:       d.Username,
		Role:           model.Role(d.Role.RoleID),
		RoleName:       d.Role.RoleName,
		InstructorName: d.InstructorName,
	}
}

func users(in []userDTO) []model.User {
	out := make([]model.User, len(in))
	for i := range in {
		out[i] = in[i].model()
	}
	return out
}

// NewUser is the signup payload of the user service.
type NewUser struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username,omitempty"`
	RoleID    int    `json:"roleId"`
}

func (u *Users) List(ctx context.Context) ([]model.User, error) {
	var out []userDTO
	if err := u.c.get(ctx, "/api/users/getusers", &out); err != nil {
		return nil, err
	}
	return users(out), nil
}

func (u *Users) Get(ctx context.Context, userID int64) (model.User, error) {
	var out userDTO
	err := u.c.get(ctx, "/api/users/"+id(userID), &out)
	return out.model(), err
}

func (u *Users) Create(ctx context.Context, nu NewUser) (model.User, error) {
	var out userDTO
	err := u.c.post(ctx, "/api/users", nu, &out)
	return out.model(), err
}

func (u *Users) Delete(ctx context.Context, userID int64) error {
	return u.c.delete(ctx, "/api/users/"+id(userID))
}

func (u *Users) Professors(ctx context.Context) ([]model.User, error) {
	var out []userDTO
	if err := u.c.get(ctx, "/api/users/getProfessors", &out); err != nil {
		return nil, err
	}
	return users(out), nil
}

func (u *Users) AssignedInstructor(ctx context.Context, taID int64) (model.User, error) {
	var out userDTO
	err := u.c.get(ctx, "/api/users/ta/"+id(taID)+"/assigned-instructor", &out)
	return out.model(), err
}

func (u *Users) RequestInstructor(ctx context.Context, studentID, instructorID int64) error {
	body := map[string]any{
		"studentId":    studentID,
		"instructorId": instructorID,
		"status":       model.BookingPending,
	}
	return u.c.post(ctx, "/api/users/student-instructor-mapping", body, nil)
}

// admin

func (u *Users) PendingUsers(ctx context.Context, role model.Role) ([]model.User, error) {
	var out []userDTO
	if err := u.c.get(ctx, fmt.Sprintf("/users/admin/pending-users?role=%d", role), &out); err != nil {
		return nil, err
	}
	return users(out), nil
}

func (u *Users) ApproveUser(ctx context.Context, userID int64) error {
	return u.c.post(ctx, "/users/admin/approve-user/"+id(userID), struct{}{}, nil)
}

func (u *Users) RejectUser(ctx context.Context, userID int64) error {
	return u.c.post(ctx, "/users/admin/reject-user/"+id(userID), struct{}{}, nil)
}

type mappingDTO struct {
	ID           int64  `json:"id"`
	MappingID    int64  `json:"mappingId"`
	StudentID    int64  `json:"studentId"`
	TAID         int64  `json:"taId"`
	InstructorID int64  `json:"instructorId"`
	UserName     string `json:"userName"`
	Status       string `json:"status"`
}

func (d mappingDTO) model() model.Mapping {
	m := model.Mapping{
		ID:           d.MappingID,
		UserID:       d.StudentID,
		InstructorID: d.InstructorID,
		UserName:     d.UserName,
		Status:       d.Status,
	}
	if m.ID == 0 {
		m.ID = d.ID
	}
	if m.UserID == 0 {
		m.UserID = d.TAID
	}
	return m
}

func (u *Users) PendingMappings(ctx context.Context, kind model.MappingKind) ([]model.Mapping, error) {
	var in []mappingDTO
	if err := u.c.get(ctx, "/users/admin/pending-"+string(kind)+"-mappings", &in); err != nil {
		return nil, err
	}
	out := make([]model.Mapping, len(in))
	for i := range in {
		out[i] = in[i].model()
	}
	return out, nil
}

func (u *Users) DecideMapping(ctx context.Context, kind model.MappingKind, mappingID int64, approve bool) error {
	verb := "reject"
	if approve {
		verb = "approve"
	}
	return u.c.post(ctx, "/users/admin/"+verb+"-"+string(kind)+"-mapping/"+id(mappingID), struct{}{}, nil)
}
