package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core/submission"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type submissionApi struct {
	svc   *submission.Service
	users *user.Service
}

func registerSubmissionAPI(g *echo.Group, authed []echo.MiddlewareFunc, admin echo.MiddlewareFunc, svc *submission.Service, users *user.Service) {
	api := submissionApi{svc: svc, users: users}

	sg := g.Group("/submission", authed...)
	sg.GET("", api.query)
	sg.POST("", api.create)
	sg.POST("/batch-review", api.batchReview, admin)
	sg.GET("/:id", api.retrieve)
	sg.DELETE("/:id", api.destroy)
	sg.POST("/:id/files", api.attachFiles)
	sg.POST("/:id/review", api.review, admin)
}

func (api *submissionApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var filter submission.QueryFilter
	page, ordering, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}

	subs, info, err := api.svc.Query(ctx.Request().Context(), usr, filter, page, ordering)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return listJSON(ctx, subs, info)
}

func (api *submissionApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data submission.NewSubmission
	if err := bindBody(ctx, &data, "NewSubmission"); err != nil {
		return err
	}

	s, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating submission")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *submissionApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	s, err := api.svc.Get(ctx.Request().Context(), usr, id)
	if err != nil {
		return errors.Wrap(err, "getting submission")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *submissionApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr, id); err != nil {
		return errors.Wrap(err, "deleting submission")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *submissionApi) attachFiles(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	uploads, err := formUploads(ctx, "files")
	if err != nil {
		return err
	}

	s, err := api.svc.AttachFiles(ctx.Request().Context(), usr, id, uploads)
	if err != nil {
		return errors.Wrap(err, "attaching submission files")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *submissionApi) review(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	var data submission.Review
	if err := bindBody(ctx, &data, "Review"); err != nil {
		return err
	}

	s, err := api.svc.Review(ctx.Request().Context(), usr, id, data)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *submissionApi) batchReview(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data submission.BatchReview
	if err := bindBody(ctx, &data, "BatchReview"); err != nil {
		return err
	}

	subs, err := api.svc.BatchReview(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "batch reviewing submissions")
	}
	return ctx.JSON(http.StatusOK, BatchReviewResponse{Reviewed: len(subs), Submissions: subs})
}

type BatchReviewResponse struct {
	Reviewed    int                     `json:"reviewed"`
	Submissions []submission.Submission `json:"submissions"`
}
