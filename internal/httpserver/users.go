package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.me")

	id, _ := authmw.UserID(c)
	user, err := h.Svc.Me(ctx, id)
	if err != nil {
		return fail(l, "me_error", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.update_me")

	var req transport.UpdateMeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_me_error", "invalid body", err)
	}

	id, _ := authmw.UserID(c)
	user, err := h.Svc.UpdateMe(ctx, id, req)
	if err != nil {
		return fail(l, "update_me_error", err)
	}

	l.Info("update_me_success")
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	p := pageParams(c)
	total, users, err := h.Svc.List(ctx, p.offset, p.limit)
	if err != nil {
		return fail(l, "list_users_error", err)
	}
	return paged(c, p, total, users)
}

func (h *UserHTTP) SetRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.set_role")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "set_role_error", "id is not a uuid", err)
	}
	var req transport.SetRoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_role_error", "invalid body", err)
	}

	user, err := h.Svc.SetRole(ctx, id, req.Role)
	if err != nil {
		return fail(l, "set_role_error", err)
	}

	l.Info("set_role_success", "user_id", id, "role", req.Role)
	return c.JSON(http.StatusOK, user)
}
