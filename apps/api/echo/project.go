package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type projectApi struct {
	svc   *project.Service
	users *user.Service
}

type (
	projectActionFunc     func(ctx context.Context, usr user.User, id int64, in project.ActionInput) (project.Detail, error)
	participantActionFunc func(ctx context.Context, usr user.User, id int64, in project.ParticipantsInput) (project.Detail, error)
)

func registerProjectAPI(g *echo.Group, authed []echo.MiddlewareFunc, svc *project.Service, users *user.Service) {
	api := projectApi{svc: svc, users: users}

	pg := g.Group("/projects", authed...)
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.DELETE("/:id", api.destroy)
	pg.GET("/:id/history", api.history)
	pg.POST("/:id/files", api.uploadFiles)

	// lifecycle
	pg.POST("/:id/submit", api.transition(svc.Submit, "submitting project"))
	pg.POST("/:id/approve", api.transition(svc.Approve, "approving project"))
	pg.POST("/:id/open", api.transition(svc.Open, "opening project"))
	pg.POST("/:id/reject", api.transition(svc.Reject, "rejecting project"))

	// participants
	pg.POST("/:id/participants", api.participants(svc.AddParticipants, "adding participants"))
	pg.DELETE("/:id/participants/:user_id", api.removeParticipant)
	pg.POST("/:id/participants/approve", api.participants(svc.ApproveParticipants, "approving participants"))
	pg.POST("/:id/participants/reject", api.participants(svc.RejectParticipants, "rejecting participants"))
	pg.POST("/:id/participants/revert", api.participants(svc.RevertParticipants, "reverting participants"))
	pg.POST("/:id/participants/reapprove", api.participants(svc.ReapproveParticipants, "reapproving participants"))
}

// target returns the context user and the `:id` path param.
func (api *projectApi) target(ctx echo.Context) (user.User, int64, error) {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return user.User{}, 0, errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return user.User{}, 0, err
	}
	return usr, id, nil
}

func (api *projectApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var filter project.QueryFilter
	page, ordering, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}

	projects, info, err := api.svc.Query(ctx.Request().Context(), usr, filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return listJSON(ctx, projects, info)
}

func (api *projectApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data project.NewProject
	if err := bindBody(ctx, &data, "NewProject"); err != nil {
		return err
	}

	d, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, d)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	usr, id, err := api.target(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.Get(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting project")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *projectApi) update(ctx echo.Context) error {
	usr, id, err := api.target(ctx)
	if err != nil {
		return err
	}
	var data project.UpdateProject
	if err := bindBody(ctx, &data, "UpdateProject"); err != nil {
		return err
	}

	d, err := api.svc.Update(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *projectApi) destroy(ctx echo.Context) error {
	usr, id, err := api.target(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting project")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *projectApi) history(ctx echo.Context) error {
	usr, id, err := api.target(ctx)
	if err != nil {
		return err
	}
	logs, err := api.svc.History(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting project history")
	}
	if logs == nil {
		logs = []project.StatusLog{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *projectApi) transition(fn projectActionFunc, desc string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, id, err := api.target(ctx)
		if err != nil {
			return err
		}
		var data project.ActionInput
		if err := bindBody(ctx, &data, "ActionInput"); err != nil {
			return err
		}

		d, err := fn(ctx.Request().Context(), usr, id, data)
		if err != nil {
			return errors.Wrap(err, desc)
		}
		return ctx.JSON(http.StatusOK, d)
	}
}

func (api *projectApi) participants(fn participantActionFunc, desc string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, id, err := api.target(ctx)
		if err != nil {
			return err
		}
		var data project.ParticipantsInput
		if err := bindBody(ctx, &data, "ParticipantsInput"); err != nil {
			return err
		}

		d, err := fn(ctx.Request().Context(), usr, id, data)
		if err != nil {
			return errors.Wrap(err, desc)
		}
		return ctx.JSON(http.StatusOK, d)
	}
}

func (api *projectApi) removeParticipant(ctx echo.Context) error {
	usr, id, err := api.target(ctx)
	if err != nil {
		return err
	}
	userID, err := paramID(ctx, "user_id")
	if err != nil {
		return err
	}

	d, err := api.svc.RemoveParticipant(ctx.Request().Context(), usr, id, userID)
	if err != nil {
		return errors.Wrap(err, "removing participant")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *projectApi) uploadFiles(ctx echo.Context) error {
	usr, id, err := api.target(ctx)
	if err != nil {
		return err
	}
	photos, err := formUploads(ctx, "photos")
	if err != nil {
		return err
	}
	certificates, err := formUploads(ctx, "certificates")
	if err != nil {
		return err
	}

	d, err := api.svc.UploadFiles(ctx.Request().Context(), usr, id, photos, certificates)
	if err != nil {
		return errors.Wrap(err, "uploading project files")
	}
	return ctx.JSON(http.StatusOK, d)
}
