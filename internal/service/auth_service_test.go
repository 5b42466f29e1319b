package service

import (
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
)

type memoryUserRepository struct {
	users []models.User
}

var _ repository.UserRepository = (*memoryUserRepository)(nil)

func (r *memoryUserRepository) Create(user *models.User) error {
	user.ID = uint(len(r.users) + 1)
	r.users = append(r.users, *user)
	return nil
}

func (r *memoryUserRepository) GetByID(id uint) (*models.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			return &r.users[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepository) GetByEmail(email string) (*models.User, error) {
	for i := range r.users {
		if strings.EqualFold(r.users[i].Email, email) {
			return &r.users[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepository) GetByUsername(username string) (*models.User, error) {
	for i := range r.users {
		if strings.EqualFold(r.users[i].Username, username) {
			return &r.users[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepository) GetAll() ([]models.User, error) { return r.users, nil }

func (r *memoryUserRepository) Update(user *models.User) error {
	for i := range r.users {
		if r.users[i].ID == user.ID {
			r.users[i] = *user
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memoryUserRepository) Count() (int64, error) { return int64(len(r.users)), nil }

func registerRequest() models.RegisterRequest {
	return models.RegisterRequest{
		Username: "amy",
		Email:    "amy@example.com",
		Password: "CorrectHorse1Battery",
		FullName: "Amy Pond",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(&memoryUserRepository{}, "test-secret")

	user, err := svc.Register(registerRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Role != "author" {
		t.Fatalf("expected the author role, got %q", user.Role)
	}
	if user.Password == "CorrectHorse1Battery" {
		t.Fatalf("expected the password hashed")
	}

	token, logged, err := svc.Login(models.LoginRequest{
		Email: "amy@example.com", Password: "CorrectHorse1Battery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected the registered user back")
	}

	parsed, err := svc.ValidateToken(token)
	if err != nil || !parsed.Valid {
		t.Fatalf("expected a valid token, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(&memoryUserRepository{}, "test-secret")
	if _, err := svc.Register(registerRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err := svc.Login(models.LoginRequest{Email: "amy@example.com", Password: "WrongPass1word"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	_, _, err = svc.Login(models.LoginRequest{Email: "nobody@example.com", Password: "CorrectHorse1Battery"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for an unknown email, got %v", err)
	}
}

func TestRegisterDuplicates(t *testing.T) {
	svc := NewAuthService(&memoryUserRepository{}, "test-secret")
	if _, err := svc.Register(registerRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dup := registerRequest()
	dup.Username = "other"
	if _, err := svc.Register(dup); err == nil {
		t.Fatalf("expected a duplicate email error")
	}

	dup = registerRequest()
	dup.Email = "other@example.com"
	if _, err := svc.Register(dup); err == nil {
		t.Fatalf("expected a duplicate username error")
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	svc := NewAuthService(&memoryUserRepository{}, "test-secret")

	weak := []string{"alllowercaseonly", "ALLUPPERCASEONLY1", "NoDigitsInHerePal"}
	for _, password := range weak {
		req := registerRequest()
		req.Password = password
		if _, err := svc.Register(req); err == nil {
			t.Fatalf("expected %q to be rejected", password)
		}
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := NewAuthService(&memoryUserRepository{}, "test-secret")
	if _, err := svc.Register(registerRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, _, err := svc.Login(models.LoginRequest{
		Email: "amy@example.com", Password: "CorrectHorse1Battery",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewAuthService(&memoryUserRepository{}, "different-secret")
	if parsed, err := other.ValidateToken(token); err == nil && parsed.Valid {
		t.Fatalf("expected a token signed with another secret to fail")
	}
}
