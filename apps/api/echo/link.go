package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/importer"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type linkApi struct {
	svc   *importer.Service
	users *user.Service
}

type sheetImportFunc func(ctx context.Context, usr user.User, yearID int64, filename string, content []byte) (importer.Result, error)

func registerLinkAPI(g *echo.Group, authed []echo.MiddlewareFunc, admin echo.MiddlewareFunc, svc *importer.Service, users *user.Service) {
	api := linkApi{svc: svc, users: users}

	lg := g.Group("/link", append(authed, admin)...)
	lg.POST("/upload", api.uploadHours)
	lg.POST("/upload-applied", api.uploadApplicants)
	lg.GET("/hours", api.queryHours)
	lg.GET("/applied", api.queryApplicants)
}

func isMultipart(ctx echo.Context) bool {
	return strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// importSheet runs a server side import of the `file` form field.
func (api *linkApi) importSheet(ctx echo.Context, usr user.User, fn sheetImportFunc) (importer.Result, error) {
	yearID, err := strconv.ParseInt(ctx.FormValue("academic_year_id"), 10, 64)
	if err != nil || yearID <= 0 {
		return importer.Result{}, core.NewFieldError("academic_year_id", "a valid academic year is required")
	}
	upload, err := formUpload(ctx, "file")
	if err != nil {
		return importer.Result{}, err
	}
	return fn(ctx.Request().Context(), usr, yearID, upload.Filename, upload.Content)
}

func (api *linkApi) uploadHours(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var res importer.Result
	if isMultipart(ctx) {
		res, err = api.importSheet(ctx, usr, api.svc.ImportLinkHoursFile)
	} else {
		var data importer.LinkHoursUpload
		if err := bindBody(ctx, &data, "LinkHoursUpload"); err != nil {
			return err
		}
		res, err = api.svc.ImportLinkHours(ctx.Request().Context(), usr, data)
	}
	if err != nil {
		return errors.Wrap(err, "importing link hours")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *linkApi) uploadApplicants(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var res importer.Result
	if isMultipart(ctx) {
		res, err = api.importSheet(ctx, usr, api.svc.ImportApplicantsFile)
	} else {
		var data importer.ApplicantsUpload
		if err := bindBody(ctx, &data, "ApplicantsUpload"); err != nil {
			return err
		}
		res, err = api.svc.ImportApplicants(ctx.Request().Context(), usr, data)
	}
	if err != nil {
		return errors.Wrap(err, "importing scholarship applicants")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *linkApi) queryHours(ctx echo.Context) error {
	var filter importer.QueryFilter
	page, _, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}
	hours, info, err := api.svc.QueryLinkHours(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying link hours")
	}
	if hours == nil {
		hours = []importer.LinkHour{}
	}
	return listJSON(ctx, hours, info)
}

func (api *linkApi) queryApplicants(ctx echo.Context) error {
	var filter importer.QueryFilter
	page, _, err := bindQuery(ctx, &filter)
	if err != nil {
		return err
	}
	applicants, info, err := api.svc.QueryApplicants(ctx.Request().Context(), filter, page)
	if err != nil {
		return errors.Wrap(err, "querying scholarship applicants")
	}
	if applicants == nil {
		applicants = []importer.Applicant{}
	}
	return listJSON(ctx, applicants, info)
}
