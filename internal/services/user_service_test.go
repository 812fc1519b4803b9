package services_test

import (
	"context"
	"errors"
	"testing"

	"invtrack/internal/domain"
	"invtrack/internal/services"
)

func TestCreateUserThenFetchUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.users.CreateUser(ctx, e.admin, services.UserInput{
		Username: "bob", Password: "secret1", Name: "Bob", Role: "OPERATOR",
	}); err != nil {
		t.Fatal(err)
	}
	users, err := e.users.FetchUsers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, u := range users {
		if u.Username == "bob" {
			found = u.Role == domain.RoleOperator && u.Name == "Bob"
		}
	}
	if !found {
		t.Fatalf("bob/OPERATOR not listed: %+v", users)
	}

	_, err = e.users.CreateUser(ctx, e.admin, services.UserInput{
		Username: "BOB", Password: "secret1", Name: "Bob", Role: "OPERATOR",
	})
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("duplicate username: want conflict, got %v", err)
	}
}

func TestAdminOperationsRequireAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.users.CreateUser(ctx, e.operator, services.UserInput{
		Username: "eve", Password: "secret1", Name: "Eve", Role: "ADMIN",
	})
	if !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("operator create: want forbidden, got %v", err)
	}
	if err := e.users.DeleteUser(ctx, nil, e.admin.ID); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("anonymous delete: want forbidden, got %v", err)
	}
}

func TestDeleteSelfRejectedBeforeStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	before, _ := e.users.FetchUsers(ctx)

	// no repo at all: any store access would panic
	detached := &services.UserService{}
	if err := detached.DeleteUser(ctx, e.admin, e.admin.ID); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
	if err := e.users.DeleteUser(ctx, e.admin, e.admin.ID); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}

	after, _ := e.users.FetchUsers(ctx)
	if len(after) != len(before) {
		t.Fatalf("users changed: %d -> %d", len(before), len(after))
	}
}

func TestUpdateSelfRejectedBeforeStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	name := "Renamed Self"
	role := domain.RoleAdmin
	detached := &services.UserService{}
	for _, p := range []services.UserPatch{{Name: &name}, {Role: &role}, {}} {
		if _, err := detached.UpdateUser(ctx, e.admin, e.admin.ID, p); !errors.Is(err, services.ErrForbidden) {
			t.Fatalf("patch %+v: want forbidden, got %v", p, err)
		}
	}
	if _, err := e.users.UpdateUser(ctx, e.admin, e.admin.ID, services.UserPatch{Name: &name}); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}

	u, err := e.auth.Users.ByID(ctx, e.admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != e.admin.Name || u.Role != domain.RoleAdmin {
		t.Fatalf("own account changed: %+v", u)
	}
}

func TestDeleteAndUpdateOtherUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	role := "admin"
	u, err := e.users.UpdateUser(ctx, e.admin, e.operator.ID, services.UserPatch{Role: &role})
	if err != nil || u.Role != domain.RoleAdmin {
		t.Fatalf("promote = %+v, %v", u, err)
	}
	demote := "OPERATOR"
	if _, err := e.users.UpdateUser(ctx, e.admin, e.admin.ID, services.UserPatch{Role: &demote}); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("self demotion: want forbidden, got %v", err)
	}

	if err := e.users.DeleteUser(ctx, e.admin, e.operator.ID); err != nil {
		t.Fatal(err)
	}
	if err := e.users.DeleteUser(ctx, e.admin, e.operator.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}
