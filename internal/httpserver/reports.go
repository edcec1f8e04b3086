package httpserver

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/report"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type ReportHTTP struct {
	Svc *service.ReportService
}

func (h *ReportHTTP) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "financial.summary")

	from, to, err := h.Svc.ParseRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(l, "summary_error", err)
	}
	sum, err := h.Svc.Summary(ctx, from, to)
	if err != nil {
		return fail(l, "summary_error", err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *ReportHTTP) Export(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "financial.export")

	format := c.QueryParam("format")
	if format == "" {
		format = report.FormatCSV
	}
	contentType, ok := report.ContentType(format)
	if !ok {
		return badRequest(l, "export_error", "format must be csv, json or xlsx", nil)
	}
	from, to, err := h.Svc.ParseRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return fail(l, "export_error", err)
	}

	var buf bytes.Buffer
	if err := h.Svc.Export(ctx, &buf, from, to, format); err != nil {
		return fail(l, "export_error", err)
	}

	name := fmt.Sprintf("financial_%s_%s.%s", from.Format("20060102"), to.Format("20060102"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))

	l.Info("export_success", "format", format, "bytes", buf.Len())
	return c.Blob(http.StatusOK, contentType, buf.Bytes())
}

func (h *ReportHTTP) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "analytics.dashboard")

	d, err := h.Svc.Dashboard(ctx)
	if err != nil {
		return fail(l, "dashboard_error", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *ReportHTTP) VAT(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "accounting.vat")

	year := time.Now().UTC().Year()
	if raw := c.QueryParam("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(l, "vat_report_error", "year is not a number", err)
		}
		year = y
	}
	rep, err := h.Svc.VAT(ctx, year)
	if err != nil {
		return fail(l, "vat_report_error", err)
	}
	return c.JSON(http.StatusOK, rep)
}
