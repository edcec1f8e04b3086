package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type VoucherHTTP struct {
	Svc *service.VoucherService
}

func (h *VoucherHTTP) Validate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vouchers.validate")

	var req transport.ValidateVoucherRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "validate_voucher_error", "invalid body", err)
	}
	preview, err := h.Svc.Validate(ctx, actorFrom(c), req)
	if err != nil {
		return fail(l, "validate_voucher_error", err)
	}
	return c.JSON(http.StatusOK, preview)
}

func (h *VoucherHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vouchers.list")

	p := pageParams(c)
	total, items, err := h.Svc.List(ctx, p.offset, p.limit)
	if err != nil {
		return fail(l, "list_vouchers_error", err)
	}
	return paged(c, p, total, items)
}

func (h *VoucherHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vouchers.get")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_voucher_error", "id is not a uuid", err)
	}
	v, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_voucher_error", err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *VoucherHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vouchers.create")

	var req transport.VoucherRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_voucher_error", "invalid body", err)
	}
	v, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_voucher_error", err)
	}

	l.Info("create_voucher_success", "code", v.Code)
	return c.JSON(http.StatusCreated, v)
}

func (h *VoucherHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vouchers.patch")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "patch_voucher_error", "id is not a uuid", err)
	}
	var req transport.PatchVoucherRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_voucher_error", "invalid body", err)
	}
	v, err := h.Svc.Patch(ctx, id, req)
	if err != nil {
		return fail(l, "patch_voucher_error", err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *VoucherHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "vouchers.delete")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "delete_voucher_error", "id is not a uuid", err)
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_voucher_error", err)
	}

	l.Info("delete_voucher_success", "voucher_id", id)
	return c.NoContent(http.StatusNoContent)
}
