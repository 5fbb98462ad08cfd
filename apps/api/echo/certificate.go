package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core/certificate"
)

type certificateApi struct {
	svc *certificate.Service
}

func registerCertificateAPI(g *echo.Group, authed []echo.MiddlewareFunc, admin echo.MiddlewareFunc, svc *certificate.Service) {
	api := certificateApi{svc: svc}

	cg := g.Group("/certificate", authed...)
	cg.GET("", api.query)
	cg.GET("/categories", api.categories)
	cg.GET("/:id", api.retrieve)
	cg.POST("", api.create, admin)
	cg.PUT("/:id", api.update, admin)
	cg.DELETE("/:id", api.destroy, admin)
}

func (api *certificateApi) query(ctx echo.Context) error {
	var filter certificate.QueryFilter
	page, ordering, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}
	if filter.IsActive, err = queryBool(ctx, "is_active"); err != nil {
		return err
	}

	types, info, err := api.svc.Query(ctx.Request().Context(), filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying certificate types")
	}
	if types == nil {
		types = []certificate.Type{}
	}
	return listJSON(ctx, types, info)
}

func (api *certificateApi) categories(ctx echo.Context) error {
	cats, err := api.svc.Categories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying certificate categories")
	}
	if cats == nil {
		cats = []string{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *certificateApi) retrieve(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	t, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting certificate type")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *certificateApi) create(ctx echo.Context) error {
	var data certificate.NewType
	if err := bindBody(ctx, &data, "NewType"); err != nil {
		return err
	}
	t, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating certificate type")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *certificateApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data certificate.UpdateType
	if err := bindBody(ctx, &data, "UpdateType"); err != nil {
		return err
	}
	t, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating certificate type")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *certificateApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting certificate type")
	}
	return ctx.NoContent(http.StatusNoContent)
}
