package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("user")
	ErrEmailExists       = errors.New("a user with this email already exists")
	ErrUsernameExists    = errors.New("a user with this username already exists")
	ErrStudentCodeExists = errors.New("a user with this student code already exists")
	// ErrInUse is returned by Repository.DeleteUsers when a user still owns projects or posts.
	ErrInUse             = core.NewConflictError(errors.New("the user still owns projects or posts"))

	errInvalidResetUID   = core.NewFieldError("uid", "invalid value")
	errInvalidResetToken = core.NewFieldError("token", "invalid value")
)

type (
	Repository interface {
		// CheckUniqueness returns one of the Err*Exists errors when a user other than excludeID
		// already uses the username, email or student code.
		CheckUniqueness(ctx context.Context, username, email, studentCode string, excludeID int64) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		GetUsersByIDs(ctx context.Context, ids []int64) ([]User, error)
		GetUsersByStudentCodes(ctx context.Context, codes []string) ([]User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Name, Username, Email or StudentCode.
		QueryUsers(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]User, int, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetLastLogin(ctx context.Context, id int64, at time.Time) error
		DeleteUsers(ctx context.Context, ids ...int64) error
	}

	Service struct {
		repo     Repository
		mail     core.EmailService // nil disables password reset emails
		validate *validator.Validate
		tokens   resetTokens
	}

	passwordResetMail struct {
		Name  string
		UID   string
		Token string
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mail:     mailSvc,
		validate: validate,
		tokens:   resetTokens{secret: []byte(conf.SecretKey), timeout: conf.PasswordResetTimeoutDelta},
	}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email, studentCode string, excludeID int64) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, studentCode, excludeID); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		case ErrStudentCodeExists:
			field = "student_code"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email, nu.StudentCode, 0); err != nil {
		return User{}, err
	}

	now := core.NowFunc()
	usr := User{
		Name:        nu.Name,
		Username:    nu.Username,
		Email:       nu.Email,
		StudentCode: null.NewString(nu.StudentCode, nu.StudentCode != ""),
		Faculty:     nu.Faculty,
		Major:       nu.Major,
		Role:        nu.Role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByIDs(ctx context.Context, ids []int64) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return svc.repo.GetUsersByIDs(ctx, core.UniqueIDs(ids))
}

func (svc *Service) GetByStudentCodes(ctx context.Context, codes []string) ([]User, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	return svc.repo.GetUsersByStudentCodes(ctx, codes)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Page, ordering []core.DBOrdering) ([]User, core.PageInfo, error) {
	filter.Clean()
	users, total, err := svc.repo.QueryUsers(ctx, filter, page.Clean(), core.SafeOrderings(ordering, OrderingFields))
	if err != nil {
		return nil, core.PageInfo{}, errors.Wrap(err, "querying users")
	}
	return users, core.NewPageInfo(page, total), nil
}

// Admins returns every active admin.
func (svc *Service) Admins(ctx context.Context) ([]User, error) {
	active := true
	users, _, err := svc.repo.QueryUsers(ctx, QueryFilter{Role: RoleAdmin, IsActive: &active}, core.Page{Number: 1, Size: core.MaxPageSize}, nil)
	return users, err
}

func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	if err := svc.validate.Struct(uu); err != nil {
		return User{}, err
	}
	updated := uu.Apply(usr)
	if err := svc.checkUniqueness(ctx, updated.Username, updated.Email, updated.StudentCode.String, usr.ID); err != nil {
		return User{}, err
	}
	if updated.IsStudent() && !updated.StudentCode.Valid {
		return User{}, core.NewFieldError("student_code", "student code is required for students")
	}
	if uu.Password != "" {
		if err := updated.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	updated.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, updated)
}

// ResetPassword sets a new password for the user identified by username or email.
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err := svc.validate.Var(pwd, passwordTag); err != nil {
		return core.NewFieldError("password", pwdPolicyText)
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// RequestPasswordReset emails a password reset link to the active user owning pr.Email.
func (svc *Service) RequestPasswordReset(ctx context.Context, pr PasswordResetRequest) error {
	pr.Email = core.CleanString(pr.Email, true /* lower */)
	if err := svc.validate.Struct(pr); err != nil {
		return err
	}
	usr, err := svc.repo.GetUserByUsernameOrEmail(ctx, pr.Email)
	if err != nil {
		return err
	}
	if !usr.IsActive || usr.Email == "" {
		return ErrNotFound
	}
	if svc.mail == nil {
		return nil
	}

	svc.mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset",
		TemplateName: "password_reset",
		TemplateData: passwordResetMail{Name: usr.Name, UID: EncodeUID(usr), Token: svc.tokens.make(usr)},
	})
	return nil
}

// ConfirmPasswordReset sets a new password when the uid & token of a reset link are valid.
func (svc *Service) ConfirmPasswordReset(ctx context.Context, rp ResetUserPassword) error {
	if err := svc.validate.Struct(rp); err != nil {
		return err
	}
	id, err := decodeUID(rp.UID)
	if err != nil {
		return errInvalidResetUID
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return errInvalidResetUID
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return errInvalidResetUID
	}
	if err := svc.tokens.verify(usr, rp.Token); err != nil {
		return errInvalidResetToken
	}

	if err := usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(core.NowFunc())
	if err := svc.repo.SetLastLogin(ctx, usr.ID, usr.LastLogin.Time); err != nil {
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...int64) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}
