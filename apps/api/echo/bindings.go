package echoapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// bindQuery binds the query string into filter and reads the page & ordering params.
func bindQuery(ctx echo.Context, filter interface{}) (core.Page, []core.DBOrdering, error) {
	if filter != nil {
		if err := ctx.Bind(filter); err != nil {
			return core.Page{}, nil, core.NewValidationError(errors.New("invalid query parameters"))
		}
	}
	var page core.Page
	if err := ctx.Bind(&page); err != nil {
		return core.Page{}, nil, core.NewValidationError(errors.New("invalid pagination parameters"))
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	return page.Clean(), ordering.Orderings, nil
}

// queryBool reads an optional boolean query param.
func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewFieldError(name, "must be true or false")
	}
	return &b, nil
}

func queryInt64(ctx echo.Context, name string) (int64, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, core.NewFieldError(name, "must be an integer")
	}
	return n, nil
}

// paramID reads a numeric path param. Unknown ids are reported as not found.
func paramID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

func bindBody(ctx echo.Context, dest interface{}, name string) error {
	if err := ctx.Bind(dest); err != nil {
		if herr, ok := err.(*echo.HTTPError); ok && herr.Code == http.StatusBadRequest {
			return core.NewValidationError(errors.New("malformed request body"))
		}
		return errors.Wrap(err, "binding to "+name)
	}
	return nil
}

// formUploads reads every file of a multipart field.
func formUploads(ctx echo.Context, field string) ([]core.Upload, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, core.NewValidationError(errors.New("a multipart/form-data body is required"))
		}
		return nil, core.NewValidationError(errors.Wrap(err, "reading multipart form"))
	}
	headers := form.File[field]
	uploads := make([]core.Upload, 0, len(headers))
	for _, fh := range headers {
		u, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func formUpload(ctx echo.Context, field string) (core.Upload, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return core.Upload{}, core.NewFieldError(field, "a file is required")
	}
	return readUpload(fh)
}

func readUpload(fh *multipart.FileHeader) (core.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return core.Upload{}, errors.Wrap(err, "opening uploaded file")
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return core.Upload{}, errors.Wrap(err, "reading uploaded file")
	}
	return core.NewUpload(fh.Filename, content), nil
}

type (
	listResponse struct {
		Data       interface{}   `json:"data"`
		Pagination core.PageInfo `json:"pagination"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func listJSON(ctx echo.Context, data interface{}, info core.PageInfo) error {
	return ctx.JSON(http.StatusOK, listResponse{Data: data, Pagination: info})
}
