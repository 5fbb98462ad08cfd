package sqlxrepos

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

const userColumns = `id, name, username, email, student_code, faculty, major, role, is_active,
	password_hash, created_at, updated_at, last_login`

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email, studentCode string, excludeID int64) error {
	var found []user.User
	err := repo.db.selectAll(ctx, &found, `SELECT `+userColumns+` FROM users
		WHERE id <> ? AND (username = ? OR email = ? OR (student_code IS NOT NULL AND student_code = ?))`,
		excludeID, username, email, studentCode)
	if err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, u := range found {
		switch {
		case username != "" && u.Username == username:
			return user.ErrUsernameExists
		case email != "" && u.Email == email:
			return user.ErrEmailExists
		case studentCode != "" && u.StudentCode.String == studentCode:
			return user.ErrStudentCodeExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	id, err := repo.db.insert(ctx, `INSERT INTO users
		(name, username, email, student_code, faculty, major, role, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:name, :username, :email, :student_code, :faculty, :major, :role, :is_active, :password_hash,
		:created_at, :updated_at, :last_login)`, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	var usr user.User
	if err := repo.db.get(ctx, &usr, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user by ID")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var usr user.User
	err := repo.db.get(ctx, &usr, `SELECT `+userColumns+` FROM users WHERE username = ? OR email = ? LIMIT 1`, username, username)
	if err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo *userRepository) GetUsersByIDs(ctx context.Context, ids []int64) ([]user.User, error) {
	var users []user.User
	err := repo.db.selectAll(ctx, &users, `SELECT `+userColumns+` FROM users WHERE id = ANY(?) ORDER BY id`, pq.Array(ids))
	return users, errors.Wrap(err, "selecting users by ID")
}

func (repo *userRepository) GetUsersByStudentCodes(ctx context.Context, codes []string) ([]user.User, error) {
	var users []user.User
	err := repo.db.selectAll(ctx, &users, `SELECT `+userColumns+` FROM users WHERE student_code = ANY(?)`, pq.Array(codes))
	return users, errors.Wrap(err, "selecting users by student code")
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]user.User, int, error) {
	w := &where{}
	w.search(filter.Search, "name", "username", "email", "student_code")
	if filter.Role != "" {
		w.add("role = ?", filter.Role)
	}
	if filter.Faculty != "" {
		w.add("faculty ILIKE ?", "%"+filter.Faculty+"%")
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}

	var users []user.User
	total, err := repo.db.queryPage(ctx, &users, userColumns, "FROM users", w, core.OrderClause(ordering, "id ASC"), page)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}
	return users, total, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	n, err := repo.db.execute(ctx, `UPDATE users SET name = ?, email = ?, student_code = ?, faculty = ?, major = ?,
		role = ?, is_active = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
		usr.Name, usr.Email, usr.StudentCode, usr.Faculty, usr.Major, usr.Role, usr.IsActive, usr.PasswordHash, usr.UpdatedAt, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := repo.db.execute(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at, id)
	return errors.Wrap(err, "setting last login")
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...int64) error {
	_, err := repo.db.execute(ctx, `DELETE FROM users WHERE id = ANY(?)`, pq.Array(ids))
	if isForeignKeyViolation(err) {
		return user.ErrInUse
	}
	return errors.Wrap(err, "deleting users")
}
