package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")

	view, err := h.Svc.Get(ctx, actorFrom(c))
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	var req transport.AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_item_error", "invalid body", err)
	}
	view, err := h.Svc.AddItem(ctx, actorFrom(c), req)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	l.Info("add_item_success", "product_id", req.ProductID, "quantity", req.Quantity)
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "update_item_error", "id is not a uuid", err)
	}
	var req transport.UpdateItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_item_error", "invalid body", err)
	}
	view, err := h.Svc.UpdateItem(ctx, actorFrom(c), id, req.Quantity)
	if err != nil {
		return fail(l, "update_item_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "remove_item_error", "id is not a uuid", err)
	}
	view, err := h.Svc.RemoveItem(ctx, actorFrom(c), id)
	if err != nil {
		return fail(l, "remove_item_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	view, err := h.Svc.Clear(ctx, actorFrom(c))
	if err != nil {
		return fail(l, "clear_cart_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) ApplyVoucher(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.apply_voucher")

	var req transport.ApplyVoucherRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "apply_voucher_error", "invalid body", err)
	}
	view, err := h.Svc.ApplyVoucher(ctx, actorFrom(c), req.Code)
	if err != nil {
		return fail(l, "apply_voucher_error", err)
	}

	l.Info("apply_voucher_success", "code", view.VoucherCode)
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) RemoveVoucher(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_voucher")

	view, err := h.Svc.RemoveVoucher(ctx, actorFrom(c))
	if err != nil {
		return fail(l, "remove_voucher_error", err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) Merge(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.merge")

	view, err := h.Svc.Merge(ctx, actorFrom(c))
	if err != nil {
		return fail(l, "merge_cart_error", err)
	}

	l.Info("merge_cart_success", "items", len(view.Items))
	return c.JSON(http.StatusOK, view)
}
