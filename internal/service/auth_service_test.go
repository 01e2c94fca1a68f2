package service

import (
	"errors"
	"testing"
	"time"

	"videoquiz_backend/internal/config"
	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/repository"
	"videoquiz_backend/internal/util"
)

func newAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
	}
	return NewAuthService(users, cfg), users
}

func TestRegisterAndLogin(t *testing.T) {
	auth, _ := newAuthService(t)

	user := &model.User{Name: "学员", Email: "a@example.com", Password: "password123", Role: model.Student}
	if err := auth.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Password == "password123" {
		t.Fatal("password must be hashed")
	}

	dup := &model.User{Name: "学员", Email: "a@example.com", Password: "other", Role: model.Student}
	if err := auth.Register(dup); !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("expected ErrEmailRegistered, got %v", err)
	}

	token, err := auth.Login("a@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := util.ParseJWT(token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != model.Student {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := auth.Login("a@example.com", "wrong"); !errors.Is(err, util.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := auth.Login("nobody@example.com", "password123"); !errors.Is(err, util.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown email, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	auth, users := newAuthService(t)

	user := &model.User{Name: "学员", Email: "a@example.com", Password: "password123", Role: model.Student}
	if err := auth.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}
	user.Disabled = true
	if err := users.Update(user); err != nil {
		t.Fatalf("disable: %v", err)
	}

	if _, err := auth.Login("a@example.com", "password123"); !errors.Is(err, util.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for disabled account, got %v", err)
	}
}
