package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// ユーザー管理、監査ログ、ダッシュボード
type AdminUserHandler struct {
	uc        *usecase.AdminUsecase
	dashboard *usecase.DashboardUsecase
}

func NewAdminUserHandler(uc *usecase.AdminUsecase, dashboard *usecase.DashboardUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc, dashboard: dashboard}
}

type UpdateRoleRequest struct {
	Role model.Role `json:"role"`
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, mw Middlewares) {
	admin := e.Group("/admin", mw.Admin...)

	admin.GET("/users", h.listUsers)
	admin.PATCH("/users/:id/role", h.updateRole)
	admin.POST("/users/:id/force-logout", h.forceLogout)
	admin.GET("/audit-logs", h.listAuditLogs)
	admin.GET("/dashboard", h.getDashboard)
}

func (h *AdminUserHandler) listUsers(c echo.Context) error {
	page, limit, msg := parsePaging(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	out, err := h.uc.ListUsers(c.Request().Context(), page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) updateRole(c echo.Context) error {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.UpdateUserRole(c.Request().Context(), adminID, targetID, req.Role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// token_version を上げて既存トークンを無効にする
func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	targetID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ForceLogout(c.Request().Context(), adminID, targetID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminUserHandler) listAuditLogs(c echo.Context) error {
	page, limit, msg := parsePaging(c)
	if msg != "" {
		return badRequest(c, msg)
	}

	f := repository.AuditLogFilter{Page: page, Limit: limit}

	var ok bool
	if f.ActorUserID, ok = parseOptionalInt64(c, "actor_user_id"); !ok {
		return badRequest(c, "invalid actor_user_id")
	}
	if f.ResourceID, ok = parseOptionalInt64(c, "resource_id"); !ok {
		return badRequest(c, "invalid resource_id")
	}
	if f.CreatedFrom, ok = parseOptionalTime(c, "from"); !ok {
		return badRequest(c, "invalid from")
	}
	if f.CreatedTo, ok = parseOptionalTime(c, "to"); !ok {
		return badRequest(c, "invalid to")
	}
	if v := c.QueryParam("action"); v != "" {
		a := model.AuditAction(v)
		f.Action = &a
	}
	if v := c.QueryParam("resource_type"); v != "" {
		rt := model.AuditResourceType(v)
		f.ResourceType = &rt
	}

	out, err := h.uc.ListAuditLogs(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ?days= で売上の集計期間（既定30日）
func (h *AdminUserHandler) getDashboard(c echo.Context) error {
	days := 0
	if v := c.QueryParam("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			return badRequest(c, "invalid days")
		}
		days = d
	}

	out, err := h.dashboard.Get(c.Request().Context(), days)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
