package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email, studentCode string, excludeID int64) error {
	defer repo.db.lock(ctx)()

	for _, usr := range repo.db.t.users {
		if usr.ID == excludeID {
			continue
		}
		switch {
		case username != "" && usr.Username == username:
			return user.ErrUsernameExists
		case email != "" && usr.Email == email:
			return user.ErrEmailExists
		case studentCode != "" && usr.StudentCode.String == studentCode:
			return user.ErrStudentCodeExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	usr.ID = repo.db.nextID()
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	defer repo.db.lock(ctx)()

	if usr, ok := repo.db.t.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	defer repo.db.lock(ctx)()

	for _, usr := range repo.db.t.users {
		if usr.Username == username || usr.Email == username {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUsersByIDs(ctx context.Context, ids []int64) ([]user.User, error) {
	defer repo.db.lock(ctx)()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.t.users[id]; ok {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *userRepository) GetUsersByStudentCodes(ctx context.Context, codes []string) ([]user.User, error) {
	defer repo.db.lock(ctx)()

	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	var users []user.User
	for _, usr := range repo.db.t.users {
		if usr.StudentCode.Valid && wanted[usr.StudentCode.String] {
			users = append(users, usr)
		}
	}
	return users, nil
}

func userField(u user.User, field string) interface{} {
	switch field {
	case "id":
		return u.ID
	case "name":
		return u.Name
	case "username":
		return u.Username
	case "student_code":
		return u.StudentCode
	case "faculty":
		return u.Faculty
	case "created_at":
		return u.CreatedAt
	case "last_login":
		return u.LastLogin
	}
	return nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, page core.Page, ordering []core.DBOrdering) ([]user.User, int, error) {
	defer repo.db.lock(ctx)()

	users := make([]user.User, 0, len(repo.db.t.users))
	for _, usr := range repo.db.t.users {
		if filter.Search != "" && !contains(usr.Name, filter.Search) && !contains(usr.Username, filter.Search) &&
			!contains(usr.Email, filter.Search) && !contains(usr.StudentCode.String, filter.Search) {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.Faculty != "" && !contains(usr.Faculty, filter.Faculty) {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		users = append(users, usr)
	}
	order(users, ordering, userField, func(u user.User) int64 { return u.ID })
	return paginate(users, page), len(users), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	defer repo.db.lock(ctx)()

	if _, ok := repo.db.t.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.t.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) SetLastLogin(ctx context.Context, id int64, at time.Time) error {
	defer repo.db.lock(ctx)()

	usr, ok := repo.db.t.users[id]
	if !ok {
		return user.ErrNotFound
	}
	usr.LastLogin = null.TimeFrom(at)
	repo.db.t.users[id] = usr
	return nil
}

// DeleteUsers follows the foreign keys of the SQL schema: projects and posts restrict the delete,
// submissions and participations go with the user.
func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...int64) error {
	defer repo.db.lock(ctx)()

	doomed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}
	for _, p := range repo.db.t.projects {
		if doomed[p.CreatedBy] {
			return user.ErrInUse
		}
	}
	for _, p := range repo.db.t.posts {
		if doomed[p.AuthorID] {
			return user.ErrInUse
		}
	}

	subs := make(map[int64]bool)
	for id, s := range repo.db.t.submissions {
		if doomed[s.UserID] {
			subs[id] = true
			delete(repo.db.t.submissions, id)
		}
	}
	logs := repo.db.t.submissionLogs[:0]
	for _, l := range repo.db.t.submissionLogs {
		if !subs[l.SubmissionID] {
			logs = append(logs, l)
		}
	}
	repo.db.t.submissionLogs = logs
	files := repo.db.t.submissionFile[:0]
	for _, f := range repo.db.t.submissionFile {
		if !subs[f.SubmissionID] {
			files = append(files, f)
		}
	}
	repo.db.t.submissionFile = files

	for k := range repo.db.t.participants {
		if doomed[k.userID] {
			delete(repo.db.t.participants, k)
		}
	}
	for id := range doomed {
		delete(repo.db.t.users, id)
	}
	return nil
}
