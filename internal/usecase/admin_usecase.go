package usecase

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

// ユーザー管理と監査ログ閲覧
type AdminUsecase struct {
	users  repo.UserRepository
	audits repo.AuditLogRepository
	auth   *AuthUsecase
	clock  Clock
}

func NewAdminUsecase(users repo.UserRepository, audits repo.AuditLogRepository, auth *AuthUsecase, clock Clock) *AdminUsecase {
	return &AdminUsecase{users: users, audits: audits, auth: auth, clock: clock}
}

type UserListOutput struct {
	Items []UserDTO `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (u *AdminUsecase) ListUsers(ctx context.Context, page, limit int) (UserListOutput, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	list, total, err := u.users.List(ctx, page, limit)
	if err != nil {
		return UserListOutput{}, dbError()
	}
	items := make([]UserDTO, 0, len(list))
	for i := range list {
		items = append(items, toUserDTO(&list[i]))
	}
	return UserListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// 自分自身の権限は変えられない
func (u *AdminUsecase) UpdateUserRole(ctx context.Context, actorAdminUserID, targetUserID int64, role model.Role) (UserDTO, error) {
	if !role.IsValid() {
		return UserDTO{}, badRequest("invalid role")
	}
	if actorAdminUserID == targetUserID {
		return UserDTO{}, badRequest("cannot change your own role")
	}

	user, err := u.users.FindByID(ctx, targetUserID)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return UserDTO{}, dbError()
	}
	if user.Role == role {
		return toUserDTO(user), nil
	}

	before := user.Role
	if err := u.users.UpdateRole(ctx, targetUserID, role); err != nil {
		return UserDTO{}, dbError()
	}
	user.Role = role

	if err := writeAudit(ctx, u.audits, model.AuditLog{
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionUpdateUserRole,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		CreatedAt:    u.clock.Now(),
	}, map[string]string{"role": string(before)}, map[string]string{"role": string(role)}); err != nil {
		return UserDTO{}, err
	}
	return toUserDTO(user), nil
}

// トークン失効そのものは AuthUsecase、ここでは監査ログを足す
func (u *AdminUsecase) ForceLogout(ctx context.Context, actorAdminUserID, targetUserID int64) (*ForceLogoutResponse, error) {
	res, err := u.auth.ForceLogout(ctx, actorAdminUserID, targetUserID)
	if err != nil {
		return nil, err
	}
	if err := writeAudit(ctx, u.audits, model.AuditLog{
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionForceLogout,
		ResourceType: model.AuditResourceUser,
		ResourceID:   targetUserID,
		CreatedAt:    u.clock.Now(),
	}, nil, map[string]int{"token_version": res.NewTokenVersion}); err != nil {
		// 失効は済んでいるので監査ログ失敗では落とさない
		logrus.WithError(err).WithField("user_id", targetUserID).Error("failed to write audit log")
	}
	return res, nil
}

func (u *AdminUsecase) ListAuditLogs(ctx context.Context, f repo.AuditLogFilter) (AuditLogListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 200 {
		f.Limit = 50
	}
	items, total, err := u.audits.List(ctx, f)
	if err != nil {
		return AuditLogListOutput{}, dbError()
	}
	return AuditLogListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}
