package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type PaymentHTTP struct {
	Svc *service.PaymentService
}

// UploadSlip takes a multipart form: slip (file), amount and transferred_at
// (RFC 3339), both optional.
func (h *PaymentHTTP) UploadSlip(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.upload_slip")

	var up service.SlipUpload
	if raw := strings.TrimSpace(c.FormValue("amount")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return badRequest(l, "upload_slip_error", "amount is not a number", err)
		}
		up.Amount = amount
	}
	if raw := strings.TrimSpace(c.FormValue("transferred_at")); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(l, "upload_slip_error", "transferred_at must be RFC 3339", err)
		}
		up.TransferredAt = &at
	}

	fh, err := c.FormFile("slip")
	if err != nil {
		return badRequest(l, "upload_slip_error", "slip file is required", err)
	}
	file, err := fh.Open()
	if err != nil {
		return badRequest(l, "upload_slip_error", "cannot read slip", err)
	}
	defer file.Close()
	up.File = file

	p, err := h.Svc.UploadSlip(ctx, actorFrom(c), c.Param("number"), up)
	if err != nil {
		return fail(l, "upload_slip_error", err)
	}

	l.Info("upload_slip_success", "payment_id", p.ID, "attempt", p.Attempt)
	return c.JSON(http.StatusCreated, p)
}

func (h *PaymentHTTP) ListForOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.list_for_order")

	items, err := h.Svc.ListForOrder(ctx, actorFrom(c), c.Param("number"))
	if err != nil {
		return fail(l, "list_payments_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *PaymentHTTP) ListPending(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.list_pending")

	p := pageParams(c)
	total, items, err := h.Svc.ListPending(ctx, p.offset, p.limit)
	if err != nil {
		return fail(l, "list_pending_error", err)
	}
	return paged(c, p, total, items)
}

func (h *PaymentHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.get")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_payment_error", "id is not a uuid", err)
	}
	p, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_payment_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PaymentHTTP) Slip(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.slip")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "get_slip_error", "id is not a uuid", err)
	}
	rc, contentType, err := h.Svc.Slip(ctx, id)
	if err != nil {
		return fail(l, "get_slip_error", err)
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, contentType, rc)
}

func (h *PaymentHTTP) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.verify")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "verify_payment_error", "id is not a uuid", err)
	}
	p, err := h.Svc.Verify(ctx, actorFrom(c), id)
	if err != nil {
		return fail(l, "verify_payment_error", err)
	}

	l.Info("verify_payment_success", "payment_id", p.ID)
	return c.JSON(http.StatusOK, p)
}

func (h *PaymentHTTP) Reject(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payments.reject")

	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(l, "reject_payment_error", "id is not a uuid", err)
	}
	var req transport.RejectPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "reject_payment_error", "invalid body", err)
	}
	p, err := h.Svc.Reject(ctx, actorFrom(c), id, req.Reason)
	if err != nil {
		return fail(l, "reject_payment_error", err)
	}

	l.Info("reject_payment_success", "payment_id", p.ID)
	return c.JSON(http.StatusOK, p)
}
