package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/stats"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type statsApi struct {
	svc *stats.Service
}

type statsResponse struct {
	Data       []stats.Row   `json:"data"`
	Pagination core.PageInfo `json:"pagination"`
	Summary    stats.Summary `json:"summary"`
}

func registerStatsAPI(g *echo.Group, authed []echo.MiddlewareFunc, admin echo.MiddlewareFunc, svc *stats.Service) {
	api := statsApi{svc: svc}

	sg := g.Group("/admin/user-statistics", append(authed, admin)...)
	sg.GET("", api.query)
	sg.GET("/export", api.export)
}

func (api *statsApi) query(ctx echo.Context) error {
	var filter stats.Filter
	page, ordering, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}

	rows, info, sum, err := api.svc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying user statistics")
	}
	if rows == nil {
		rows = []stats.Row{}
	}
	return ctx.JSON(http.StatusOK, statsResponse{Data: rows, Pagination: info, Summary: sum})
}

func (api *statsApi) export(ctx echo.Context) error {
	var filter stats.Filter
	_, ordering, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}

	content, err := api.svc.Export(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "exporting user statistics")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", stats.ExportFilename(filter)))
	return ctx.Blob(http.StatusOK, xlsxMIME, content)
}
