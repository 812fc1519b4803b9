package services

import (
	"context"
	"errors"

	"invtrack/internal/domain"
	"invtrack/internal/repos"
	"invtrack/internal/validate"
)

// UserService holds the admin-only account operations. Every method takes
// the acting user and checks it before touching the store.
type UserService struct {
	Users *repos.UserRepo
	Auth  *AuthService
}

func NewUserService(users *repos.UserRepo, auth *AuthService) *UserService {
	return &UserService{Users: users, Auth: auth}
}

type UserInput struct {
	Username string
	Password string
	Name     string
	Role     string
}

func (in *UserInput) Validate() []validate.FieldError {
	reg := RegisterInput{Username: in.Username, Password: in.Password, Name: in.Name}
	errs := validate.Errors(reg.Validate())
	in.Username, in.Name = reg.Username, reg.Name
	var ok bool
	in.Role, ok = validate.Role(in.Role)
	errs.Check(ok, "role", "must be ADMIN or OPERATOR")
	return errs
}

// UserPatch changes only the fields that are set.
type UserPatch struct {
	Name *string
	Role *string
}

func (p *UserPatch) Validate() []validate.FieldError {
	var errs validate.Errors
	if p.Name != nil {
		n, ok := validate.Name(*p.Name)
		errs.Check(ok, "name", "at least 2 characters")
		p.Name = &n
	}
	if p.Role != nil {
		r, ok := validate.Role(*p.Role)
		errs.Check(ok, "role", "must be ADMIN or OPERATOR")
		p.Role = &r
	}
	return errs
}

func requireAdmin(actor *domain.User) error {
	if !actor.IsAdmin() {
		return forbidden("admin role required")
	}
	return nil
}

func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, in UserInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := invalid(in.Validate()); err != nil {
		return nil, err
	}
	return s.Auth.newUser(ctx, in.Username, in.Password, in.Name, in.Role)
}

// UpdateUser changes another account's name or role. Your own account is
// refused before any store access.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, id string, p UserPatch) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if id == actor.ID {
		return nil, forbidden("cannot modify your own account")
	}
	if err := invalid(p.Validate()); err != nil {
		return nil, err
	}

	u, err := s.Users.ByID(ctx, id)
	if errors.Is(err, repos.ErrNotFound) {
		return nil, notFound("user")
	}
	if err != nil {
		return nil, backend("get user", err)
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if err := s.Users.Update(ctx, u); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, notFound("user")
		}
		return nil, backend("update user", err)
	}
	return u, nil
}

// DeleteUser removes another account. Deleting yourself is refused.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == "" {
		return &ValidationError{Fields: []validate.FieldError{{Field: "id", Message: "is required"}}}
	}
	if id == actor.ID {
		return forbidden("cannot delete your own account")
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return notFound("user")
		}
		return backend("delete user", err)
	}
	return nil
}

func (s *UserService) FetchUsers(ctx context.Context) ([]domain.User, error) {
	out, err := s.Users.List(ctx)
	return out, backend("list users", err)
}
