package tests

import (
	"net/http"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/mamamind47/sfa-efilling-sub001/apps/api/echo"
	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

func Test_userApi_login(t *testing.T) {
	env := setup(t)

	student := env.createStudent(t, "awe", "65010001")
	env.createUser(t, "N Dog", "ndog", "65010002", user.RoleStudent, false)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}
	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "malformed body", body: []byte("{"), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "malformed request body"})},
		{name: "unknown user", body: login("nobody", testPassword), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", body: login(student.Username, "lol"), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "deactivated", body: login("ndog", testPassword), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/login", tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	for _, uname := range []string{student.Username, "AWE", student.Email} {
		t.Run("login with "+uname, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/login", login(uname, testPassword))
			env.app.ServeHTTP(rec, req)
			checkCode(t, rec, http.StatusOK)

			var resp echoapi.LoginResponse
			unmarshal(t, rec, &resp)
			require.NotEmpty(t, resp.Token)

			rec = env.do(t, http.MethodGet, "/api/users/me", resp.Token, nil)
			checkCode(t, rec, http.StatusOK)
			var me user.User
			unmarshal(t, rec, &me)
			assert.Equal(t, student.ID, me.ID)
			assert.True(t, me.LastLogin.Valid)
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	env := setup(t)

	usr := env.createStudent(t, "awe", "65010001")
	token := env.getToken(t, usr)

	oldClaims := echoapi.GetUserClaims(usr, env.conf, time.Now().Add(-48*time.Hour).Unix())
	expiredRefresh, err := echoapi.GenerateToken(oldClaims, env.conf)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "no token", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "refresh expired", token: expiredRefresh, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/users/token-refresh", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/users/token-refresh", token, nil)
		checkCode(t, rec, http.StatusOK)
		var resp echoapi.LoginResponse
		unmarshal(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/users/token-refresh", token+"x", nil)
		checkCode(t, rec, http.StatusUnauthorized)
	})
}

func Test_userApi_userQuery(t *testing.T) {
	env := setup(t)

	admin := env.createAdmin(t, "admin")
	awe := env.createStudent(t, "awe", "65010001")
	hero := env.createStudent(t, "hero", "65010002")
	naughty := env.createUser(t, "N Dog", "ndog", "65010003", user.RoleStudent, false)

	path := func(v url.Values) string { return "/api/users?" + v.Encode() }

	t.Run("student forbidden", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/users", env.getToken(t, awe), nil)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)
	})

	tests := []struct {
		name    string
		query   url.Values
		wantIDs []int64
	}{
		{name: "all", query: url.Values{"ordering": {"id"}}, wantIDs: []int64{admin.ID, awe.ID, hero.ID, naughty.ID}},
		{name: "students", query: url.Values{"role": {"student"}, "ordering": {"-id"}}, wantIDs: []int64{naughty.ID, hero.ID, awe.ID}},
		{name: "inactive", query: url.Values{"is_active": {"false"}}, wantIDs: []int64{naughty.ID}},
		{name: "search", query: url.Values{"search": {"HERO"}}, wantIDs: []int64{hero.ID}},
		{name: "paginated", query: url.Values{"ordering": {"id"}, "page": {"2"}, "per_page": {"3"}}, wantIDs: []int64{naughty.ID}},
	}
	token := env.getToken(t, admin)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, path(tt.query), token, nil)
			checkCode(t, rec, http.StatusOK)

			var body listBody[user.User]
			unmarshal(t, rec, &body)
			ids := make([]int64, 0, len(body.Data))
			for _, u := range body.Data {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	t.Run("pagination info", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, path(url.Values{"page": {"2"}, "per_page": {"3"}}), token, nil)
		var body listBody[user.User]
		unmarshal(t, rec, &body)
		assert.Equal(t, 2, body.Pagination.Page)
		assert.Equal(t, 3, body.Pagination.PerPage)
		assert.Equal(t, 4, body.Pagination.Total)
		assert.Equal(t, 2, body.Pagination.TotalPages)
	})

	t.Run("bad is_active", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, path(url.Values{"is_active": {"lol"}}), token, nil)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"is_active": "must be true or false"})}, rec)
	})
}

func Test_userApi_userCreate(t *testing.T) {
	env := setup(t)

	admin := env.createAdmin(t, "admin")
	token := env.getToken(t, admin)

	t.Run("missing fields", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/users", token, user.NewUser{Role: user.RoleStudent})
		checkCode(t, rec, http.StatusBadRequest)
		var fields map[string]string
		unmarshal(t, rec, &fields)
		assert.Contains(t, fields, "username")
		assert.Contains(t, fields, "email")
		assert.Contains(t, fields, "student_code")
	})

	nu := user.NewUser{
		Name:            "Somchai Jaidee",
		Username:        "somchai",
		Email:           "somchai@test.ac.th",
		StudentCode:     "65010099",
		Role:            user.RoleStudent,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	}

	t.Run("created", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/users", token, nu)
		checkCode(t, rec, http.StatusCreated)
		var usr user.User
		unmarshal(t, rec, &usr)
		assert.Equal(t, "somchai", usr.Username)
		assert.True(t, usr.IsActive)
		assert.True(t, usr.IsStudent())
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup := nu
		dup.Email = "other@test.ac.th"
		dup.StudentCode = "65010100"
		rec := env.do(t, http.MethodPost, "/api/users", token, dup)
		checkCode(t, rec, http.StatusBadRequest)
		var fields map[string]string
		unmarshal(t, rec, &fields)
		assert.Contains(t, fields, "username")
	})
}

func Test_userApi_userUpdate(t *testing.T) {
	env := setup(t)

	admin := env.createAdmin(t, "admin")
	awe := env.createStudent(t, "awe", "65010001")
	hero := env.createStudent(t, "hero", "65010002")
	aweToken := env.getToken(t, awe)

	newName := "Awe Updated"
	tests := []httpTest{
		{name: "other user", path: "/api/users/" + itoa(hero.ID), token: aweToken, body: marchallObj(t, user.UpdateUser{Name: newName}), wantCode: http.StatusNotFound},
		{name: "set own role", path: "/api/users/" + itoa(awe.ID), token: aweToken, body: marchallObj(t, user.UpdateUser{Role: user.RoleAdmin}), wantCode: http.StatusForbidden},
		{name: "own name", path: "/api/users/" + itoa(awe.ID), token: aweToken, body: marchallObj(t, user.UpdateUser{Name: newName}), wantCode: http.StatusOK},
		{name: "admin deactivates", path: "/api/users/" + itoa(hero.ID), token: env.getToken(t, admin), body: []byte(`{"is_active": false}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCode(t, rec, tt.wantCode)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/users/me", aweToken, nil)
	var me user.User
	unmarshal(t, rec, &me)
	assert.Equal(t, newName, me.Name)

	// deactivated accounts lose access immediately
	rec = env.do(t, http.MethodGet, "/api/users/me", env.getToken(t, hero), nil)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})}, rec)
}

func Test_userApi_userDelete(t *testing.T) {
	env := setup(t)

	admin := env.createAdmin(t, "admin")
	awe := env.createStudent(t, "awe", "65010001")
	hero := env.createStudent(t, "hero", "65010002")
	token := env.getToken(t, admin)

	rec := env.do(t, http.MethodDelete, "/api/users/"+itoa(admin.ID), token, nil)
	checkCode(t, rec, http.StatusForbidden)

	rec = env.do(t, http.MethodDelete, "/api/users/"+itoa(awe.ID), env.getToken(t, hero), nil)
	checkCode(t, rec, http.StatusNotFound)

	rec = env.do(t, http.MethodDelete, "/api/users?id="+itoa(awe.ID)+"&id="+itoa(hero.ID), token, nil)
	checkCode(t, rec, http.StatusNoContent)

	rec = env.do(t, http.MethodGet, "/api/users/"+itoa(awe.ID), token, nil)
	checkCode(t, rec, http.StatusNotFound)
}

var resetLinkRegex = regexp.MustCompile(`/password-reset/([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+)`)

// requestReset asks for a reset link for email and returns its uid & token, if one was sent.
func (env *testEnv) requestReset(t *testing.T, email string) (string, string, bool) {
	t.Helper()
	env.outbox.Reset()
	rec := env.do(t, http.MethodPost, "/api/users/password-reset", "", user.PasswordResetRequest{Email: email})
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})}, rec)

	sent := env.outbox.Sent()
	if len(sent) == 0 {
		return "", "", false
	}
	require.Len(t, sent, 1)
	m := resetLinkRegex.FindStringSubmatch(sent[0].TextContent)
	require.Len(t, m, 3, sent[0].TextContent)
	assert.Contains(t, sent[0].HTMLContent, m[0])
	return m[1], m[2], true
}

func Test_userApi_userResetPassword(t *testing.T) {
	env := setup(t)

	student := env.createStudent(t, "awe", "65010001")
	env.createUser(t, "N Dog", "ndog", "65010002", user.RoleStudent, false)

	t.Run("validation", func(t *testing.T) {
		for _, email := range []string{"", "lol"} {
			rec := env.do(t, http.MethodPost, "/api/users/password-reset", "", user.PasswordResetRequest{Email: email})
			checkCode(t, rec, http.StatusBadRequest)
			var fields map[string]string
			unmarshal(t, rec, &fields)
			assert.Contains(t, fields, "email")
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, sent := env.requestReset(t, "nobody@test.ac.th")
		assert.False(t, sent)
	})

	t.Run("deactivated account", func(t *testing.T) {
		_, _, sent := env.requestReset(t, "ndog@test.ac.th")
		assert.False(t, sent)
	})

	t.Run("known email", func(t *testing.T) {
		uid, token, sent := env.requestReset(t, "  AWE@test.ac.th ")
		require.True(t, sent)
		assert.Equal(t, user.EncodeUID(student), uid)
		assert.NotEmpty(t, token)

		msg := env.outbox.Sent()[0]
		assert.Equal(t, student.Email, msg.To[0].Address)
		assert.Contains(t, msg.TextContent, student.Name)
		assert.Contains(t, msg.TextContent, env.conf.FrontendBaseURL)
	})
}

func Test_userApi_userConfirmPasswordReset(t *testing.T) {
	env := setup(t)

	student := env.createStudent(t, "awe", "65010001")
	const newPassword = "Temple-Run#42"

	// a link issued four days ago
	now := core.NowFunc
	core.NowFunc = func() time.Time { return now().Add(-4 * 24 * time.Hour) }
	expiredUID, expiredToken, sent := env.requestReset(t, student.Email)
	core.NowFunc = now
	require.True(t, sent)

	uid, token, sent := env.requestReset(t, student.Email)
	require.True(t, sent)

	confirm := func(uid, token, pwd, pwdConfirm string) user.ResetUserPassword {
		return user.ResetUserPassword{UID: uid, Token: token, Password: pwd, PasswordConfirm: pwdConfirm}
	}
	invalid := "invalid value"

	tests := []struct {
		name     string
		body     user.ResetUserPassword
		wantCode int
		wantData map[string]string
	}{
		{name: "numeric password", body: confirm(uid, token, "12345678", "12345678"), wantCode: http.StatusBadRequest,
			wantData: map[string]string{"password": "password cannot be entirely numeric"}},
		{name: "weak password", body: confirm(uid, token, "lol12345", "lol12345"), wantCode: http.StatusBadRequest,
			wantData: map[string]string{"password": "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}},
		{name: "invalid uid", body: confirm("bG9s", token, newPassword, newPassword), wantCode: http.StatusBadRequest,
			wantData: map[string]string{"uid": invalid}},
		{name: "unknown user", body: confirm("OTk5", token, newPassword, newPassword), wantCode: http.StatusBadRequest,
			wantData: map[string]string{"uid": invalid}},
		{name: "invalid token", body: confirm(uid, "HE4TS-sigsig-sig", newPassword, newPassword), wantCode: http.StatusBadRequest,
			wantData: map[string]string{"token": invalid}},
		{name: "expired token", body: confirm(expiredUID, expiredToken, newPassword, newPassword), wantCode: http.StatusBadRequest,
			wantData: map[string]string{"token": invalid}},
		{name: "valid token", body: confirm(uid, token, newPassword, newPassword), wantCode: http.StatusOK},
		{name: "token is single use", body: confirm(uid, token, "Other-Pass#77", "Other-Pass#77"), wantCode: http.StatusBadRequest,
			wantData: map[string]string{"token": invalid}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/users/password-reset-confirm", "", tt.body)
			if tt.wantData != nil {
				checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: marchallObj(t, tt.wantData)}, rec)
				return
			}
			checkCode(t, rec, tt.wantCode)
		})
	}

	t.Run("password confirmation", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/users/password-reset-confirm", "", confirm(uid, token, newPassword, "nope"))
		checkCode(t, rec, http.StatusBadRequest)
		var fields map[string]string
		unmarshal(t, rec, &fields)
		assert.Contains(t, fields, "password_confirm")
	})

	t.Run("login with the new password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/users/login", "", echoapi.LoginRequest{Username: student.Username, Password: newPassword})
		checkCode(t, rec, http.StatusOK)
		rec = env.do(t, http.MethodPost, "/api/users/login", "", echoapi.LoginRequest{Username: student.Username, Password: testPassword})
		checkCode(t, rec, http.StatusBadRequest)
	})
}
