package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core/post"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type postApi struct {
	svc   *post.Service
	users *user.Service
}

func registerPostAPI(g *echo.Group, authed []echo.MiddlewareFunc, admin echo.MiddlewareFunc, svc *post.Service, users *user.Service) {
	api := postApi{svc: svc, users: users}

	pg := g.Group("/posts", authed...)
	pg.GET("", api.query)
	pg.GET("/categories", api.categories)
	pg.GET("/:id", api.retrieve)
	pg.POST("", api.create, admin)
	pg.PUT("/:id", api.update, admin)
	pg.DELETE("/:id", api.destroy, admin)
	pg.PATCH("/:id/pin", api.pin, admin)
	pg.POST("/:id/attachments", api.addAttachments, admin)
	pg.DELETE("/:id/attachments/:attachment_id", api.deleteAttachment, admin)
}

func (api *postApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var filter post.QueryFilter
	page, _, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}

	posts, info, err := api.svc.Query(ctx.Request().Context(), usr, filter, page)
	if err != nil {
		return errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []post.Post{}
	}
	return listJSON(ctx, posts, info)
}

func (api *postApi) categories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Categories())
}

func (api *postApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	p, err := api.svc.Get(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting post")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data post.NewPost
	if err := bindBody(ctx, &data, "NewPost"); err != nil {
		return err
	}

	p, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating post")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *postApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data post.UpdatePost
	if err := bindBody(ctx, &data, "UpdatePost"); err != nil {
		return err
	}

	p, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating post")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) pin(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data post.Pin
	if err := bindBody(ctx, &data, "Pin"); err != nil {
		return err
	}

	p, err := api.svc.SetPinned(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "pinning post")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting post")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *postApi) addAttachments(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	uploads, err := formUploads(ctx, "files")
	if err != nil {
		return err
	}

	p, err := api.svc.AddAttachments(ctx.Request().Context(), id, uploads)
	if err != nil {
		return errors.Wrap(err, "adding post attachments")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *postApi) deleteAttachment(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	attID, err := paramID(ctx, "attachment_id")
	if err != nil {
		return err
	}

	if err := api.svc.DeleteAttachment(ctx.Request().Context(), id, attID); err != nil {
		return errors.Wrap(err, "deleting post attachment")
	}
	return ctx.NoContent(http.StatusNoContent)
}
