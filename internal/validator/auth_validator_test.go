package validator

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/assert"
)

// FindByEmail だけ使う
type fakeUsers struct {
	repository.UserRepository
	byEmail map[string]*model.User
	err     error
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func TestValidateRegister(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]*model.User{"taken@example.com": {ID: 1}}}
	v := NewAuthValidator(users)
	ctx := context.Background()

	assert.NoError(t, v.ValidateRegister(ctx, "Asha", "new@example.com", "password123"))

	err := v.ValidateRegister(ctx, "", "new@example.com", "password123")
	assert.ErrorIs(t, err, usecase.ErrValidation)

	err = v.ValidateRegister(ctx, "Asha", "not-an-email", "password123")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	err = v.ValidateRegister(ctx, "Asha", "new@example.com", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	err = v.ValidateRegister(ctx, "Asha", "Taken@Example.com", "password123")
	assert.ErrorIs(t, err, usecase.ErrConflict)
}

func TestValidateRegister_RepoFailure(t *testing.T) {
	v := NewAuthValidator(&fakeUsers{err: errors.New("db down")})
	err := v.ValidateRegister(context.Background(), "Asha", "a@example.com", "password123")
	assert.ErrorIs(t, err, usecase.ErrInternal)
}

func TestValidateLogin(t *testing.T) {
	v := NewAuthValidator(&fakeUsers{})
	assert.NoError(t, v.ValidateLogin(context.Background(), "a@example.com", "x"))
	assert.ErrorIs(t, v.ValidateLogin(context.Background(), "a@example.com", ""), usecase.ErrValidation)
}

func TestValidateForceLogout(t *testing.T) {
	v := NewAuthValidator(&fakeUsers{})
	assert.NoError(t, v.ValidateForceLogout(context.Background(), 1, 2))
	assert.ErrorIs(t, v.ValidateForceLogout(context.Background(), 1, 1), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateForceLogout(context.Background(), 1, 0), usecase.ErrValidation)
}
