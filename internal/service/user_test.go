package service

import (
	"context"
	"errors"
	"testing"

	"github.com/creationgoals/server/internal/apperror"
)

func newTestUserService(users *mockUserRepo) *UserService {
	return NewUserService(users, testLogger())
}

func TestUserList_SortedByLastName(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestUserService(users)
	// seedUser stores "User" as the last name; give each a distinct one.
	for _, u := range []struct{ email, lastName string }{
		{"z@example.com", "Zimmer"},
		{"a@example.com", "Abel"},
		{"m@example.com", "Moss"},
	} {
		created := seedUser(t, users, u.email)
		created.LastName = u.lastName
		if err := users.UpdateUser(context.Background(), created); err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}
	}

	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List() returned %d users, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].LastName > got[i].LastName {
			t.Errorf("List() not sorted: %q before %q", got[i-1].LastName, got[i].LastName)
		}
	}
}

func TestUserGetByID_Validation(t *testing.T) {
	svc := newTestUserService(newMockUserRepo())

	if _, err := svc.GetByID(context.Background(), "  "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("GetByID() error = %v, want ErrValidation", err)
	}
}

func TestUserUpdate_NilFieldsLeaveValuesUnchanged(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestUserService(users)
	user := seedUser(t, users, "ada@example.com")
	user.Bio = strptr("original bio")
	if err := users.UpdateUser(context.Background(), user); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	// Only the display name is supplied; everything else stays.
	updated, err := svc.Update(context.Background(), user.ID, user.ID, UpdateInput{
		DisplayName: strptr("Countess"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.DisplayName != "Countess" {
		t.Errorf("DisplayName = %q, want %q", updated.DisplayName, "Countess")
	}
	if updated.Bio == nil || *updated.Bio != "original bio" {
		t.Errorf("Bio = %v, want original bio unchanged", updated.Bio)
	}
	if updated.Email != "ada@example.com" {
		t.Errorf("Email = %q, want unchanged", updated.Email)
	}
}

func TestUserUpdate_RejectsEmptyEmail(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestUserService(users)
	user := seedUser(t, users, "ada@example.com")

	_, err := svc.Update(context.Background(), user.ID, user.ID, UpdateInput{
		Email: strptr("  "),
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Update() error = %v, want ErrValidation", err)
	}
}

func TestUserUpdate_OwnerOnly(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestUserService(users)
	user := seedUser(t, users, "ada@example.com")

	_, err := svc.Update(context.Background(), "someone-else", user.ID, UpdateInput{})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Update() error = %v, want ErrForbidden", err)
	}
}

func TestUserDelete_OwnerOnly(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestUserService(users)
	user := seedUser(t, users, "ada@example.com")

	if err := svc.Delete(context.Background(), "someone-else", user.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() error = %v, want ErrForbidden", err)
	}

	if err := svc.Delete(context.Background(), user.ID, user.ID); err != nil {
		t.Fatalf("Delete(owner) error = %v", err)
	}
	if _, err := svc.GetByID(context.Background(), user.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("user still present after delete: %v", err)
	}
}
