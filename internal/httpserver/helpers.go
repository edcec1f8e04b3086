package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/service"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/util"
)

func actorFrom(c echo.Context) service.Actor {
	a := service.Actor{Role: authmw.Role(c), SessionID: authmw.SessionID(c)}
	if id, ok := authmw.UserID(c); ok {
		a.UserID = &id
	}
	return a
}

func paramID(c echo.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

type pageRequest struct {
	page, offset, limit int
}

func pageParams(c echo.Context) pageRequest {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)
	return pageRequest{page: page, offset: offset, limit: limit}
}

func paged[T any](c echo.Context, p pageRequest, total int64, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(p.page, p.offset, p.limit, total),
	})
}
