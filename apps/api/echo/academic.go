package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
)

type academicApi struct {
	svc *academic.Service
}

func registerAcademicAPI(g *echo.Group, authed []echo.MiddlewareFunc, admin echo.MiddlewareFunc, svc *academic.Service) {
	api := academicApi{svc: svc}

	ag := g.Group("/academic", authed...)
	ag.GET("", api.query)
	ag.GET("/current", api.current)
	ag.GET("/:id", api.retrieve)
	ag.POST("", api.create, admin)
	ag.PUT("/:id", api.update, admin)
	ag.PATCH("/:id/status", api.setStatus, admin)
	ag.DELETE("/:id", api.destroy, admin)
}

func (api *academicApi) query(ctx echo.Context) error {
	var filter academic.QueryFilter
	_, ordering, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}
	years, err := api.svc.Query(ctx.Request().Context(), filter, ordering)
	if err != nil {
		return errors.Wrap(err, "querying academic years")
	}
	if years == nil {
		years = []academic.AcademicYear{}
	}
	return listJSON(ctx, years, core.NewPageInfo(core.Page{Number: 1, Size: core.MaxPageSize}, len(years)))
}

func (api *academicApi) current(ctx echo.Context) error {
	y, err := api.svc.Current(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting current academic year")
	}
	return ctx.JSON(http.StatusOK, y)
}

func (api *academicApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	y, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting academic year")
	}
	return ctx.JSON(http.StatusOK, y)
}

func (api *academicApi) create(ctx echo.Context) error {
	var data academic.NewAcademicYear
	if err := bindBody(ctx, &data, "NewAcademicYear"); err != nil {
		return err
	}
	y, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating academic year")
	}
	return ctx.JSON(http.StatusCreated, y)
}

func (api *academicApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data academic.UpdateAcademicYear
	if err := bindBody(ctx, &data, "UpdateAcademicYear"); err != nil {
		return err
	}
	y, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating academic year")
	}
	return ctx.JSON(http.StatusOK, y)
}

func (api *academicApi) setStatus(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data academic.SetStatus
	if err := bindBody(ctx, &data, "SetStatus"); err != nil {
		return err
	}
	y, err := api.svc.SetStatus(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "setting academic year status")
	}
	return ctx.JSON(http.StatusOK, y)
}

func (api *academicApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting academic year")
	}
	return ctx.NoContent(http.StatusNoContent)
}
