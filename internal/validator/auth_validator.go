package validator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storefront/internal/repository"
	"storefront/internal/usecase"
)

var (
	// 入力が不正
	ErrInvalidInput = fmt.Errorf("%w: invalid input", usecase.ErrValidation)

	ErrInvalidEmail = fmt.Errorf("%w: invalid email", usecase.ErrValidation)

	ErrWeakPassword = fmt.Errorf("%w: password must be at least 8 characters", usecase.ErrValidation)

	// emailが既に使用済み
	ErrEmailAlreadyUsed = fmt.Errorf("%w: email already used", usecase.ErrConflict)
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AuthValidator struct {
	users repository.UserRepository
}

var _ usecase.AuthValidator = (*AuthValidator)(nil)

func NewAuthValidator(users repository.UserRepository) *AuthValidator {
	return &AuthValidator{users: users}
}

// サインアップの入力を検証
func (v *AuthValidator) ValidateRegister(ctx context.Context, name, email, password string) error {
	email = strings.TrimSpace(email)

	// 必須チェック
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		return ErrInvalidInput
	}
	if !isEmailLike(email) {
		return ErrInvalidEmail
	}
	if len(password) < 8 {
		return ErrWeakPassword
	}

	// email重複チェック
	u, err := v.users.FindByEmail(ctx, strings.ToLower(email))
	if err == nil && u != nil {
		return ErrEmailAlreadyUsed
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return usecase.ErrInternal
	}
	return nil
}

// ログインの入力を検証
func (v *AuthValidator) ValidateLogin(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrInvalidInput
	}
	if !isEmailLike(email) {
		return ErrInvalidEmail
	}
	return nil
}

// 自分自身は対象外
func (v *AuthValidator) ValidateForceLogout(ctx context.Context, actorUserID, targetUserID int64) error {
	if targetUserID <= 0 {
		return ErrInvalidInput
	}
	if actorUserID == targetUserID {
		return fmt.Errorf("%w: cannot force logout yourself", usecase.ErrValidation)
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	return emailRe.MatchString(s)
}
