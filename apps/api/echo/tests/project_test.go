package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamind47/sfa-efilling-sub001/core/academic"
	"github.com/mamamind47/sfa-efilling-sub001/core/project"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

// projectFixture is a draft project created by owner with three participants.
type projectFixture struct {
	env        *testEnv
	owner      user.User
	admin      user.User
	a, b, c    user.User
	ownerToken string
	adminToken string
	project    project.Detail
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()
	env := setup(t)

	f := &projectFixture{env: env}
	f.owner = env.createStudent(t, "owner", "65010000")
	f.admin = env.createAdmin(t, "admin")
	f.a = env.createStudent(t, "alpha", "65010001")
	f.b = env.createStudent(t, "bravo", "65010002")
	f.c = env.createStudent(t, "charlie", "65010003")
	f.ownerToken = env.getToken(t, f.owner)
	f.adminToken = env.getToken(t, f.admin)
	year := env.createYear(t, 2568, academic.StatusAuto)

	rec := env.do(t, http.MethodPost, "/api/projects", f.ownerToken, project.NewProject{
		Name:           "Temple cleanup",
		Type:           project.TypeReligious,
		Location:       "Wat Suthat",
		StartDate:      "2025-07-01",
		EndDate:        "2025-07-02",
		HoursPerPerson: 16,
		AcademicYearID: year.ID,
		ParticipantIDs: []int64{f.a.ID, f.b.ID, f.c.ID, f.a.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	unmarshal(t, rec, &f.project)
	return f
}

func (f *projectFixture) path(suffix string) string {
	return "/api/projects/" + itoa(f.project.ID) + suffix
}

// act posts payload to one of the project endpoints and decodes the resulting detail on success.
func (f *projectFixture) act(t *testing.T, suffix, token string, payload interface{}, wantCode int) project.Detail {
	t.Helper()
	rec := f.env.do(t, http.MethodPost, f.path(suffix), token, payload)
	checkCode(t, rec, wantCode)
	var d project.Detail
	if rec.Code == http.StatusOK {
		unmarshal(t, rec, &d)
	}
	return d
}

func (f *projectFixture) get(t *testing.T) project.Detail {
	t.Helper()
	rec := f.env.do(t, http.MethodGet, f.path(""), f.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d project.Detail
	unmarshal(t, rec, &d)
	return d
}

func participant(t *testing.T, d project.Detail, userID int64) project.Participant {
	t.Helper()
	for _, pt := range d.Participants {
		if pt.UserID == userID {
			return pt
		}
	}
	t.Fatalf("user %d is not a participant of project %d", userID, d.ID)
	return project.Participant{}
}

func Test_projectApi_create(t *testing.T) {
	f := newProjectFixture(t)

	assert.Equal(t, project.StatusDraft, f.project.Status)
	assert.Equal(t, f.owner.ID, f.project.CreatedBy)
	assert.Len(t, f.project.Participants, 3)
	for _, pt := range f.project.Participants {
		assert.Equal(t, project.ParticipantPending, pt.Status)
		assert.False(t, pt.HoursReceived.Valid)
	}
	assert.Contains(t, f.project.AllowedActions, project.CanSubmit)
	assert.NotContains(t, f.project.AllowedActions, project.CanApprove)

	t.Run("invalid period", func(t *testing.T) {
		rec := f.env.do(t, http.MethodPost, "/api/projects", f.ownerToken, project.NewProject{
			Name:           "Backwards",
			Type:           project.TypeSocialDevelopment,
			StartDate:      "2025-07-02",
			EndDate:        "2025-07-01",
			HoursPerPerson: 3,
			AcademicYearID: f.project.AcademicYearID,
		})
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"end_date": "end date must not be before the start date"})}, rec)
	})

	t.Run("participants see the project", func(t *testing.T) {
		rec := f.env.do(t, http.MethodGet, "/api/projects", f.env.getToken(t, f.b), nil)
		var body listBody[project.Project]
		unmarshal(t, rec, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, f.project.ID, body.Data[0].ID)
	})

	t.Run("outsiders do not", func(t *testing.T) {
		outsider := f.env.createStudent(t, "delta", "65010004")
		token := f.env.getToken(t, outsider)
		rec := f.env.do(t, http.MethodGet, f.path(""), token, nil)
		checkCode(t, rec, http.StatusForbidden)

		rec = f.env.do(t, http.MethodGet, "/api/projects", token, nil)
		var body listBody[project.Project]
		unmarshal(t, rec, &body)
		assert.Empty(t, body.Data)
	})
}

func Test_projectApi_lifecycle(t *testing.T) {
	f := newProjectFixture(t)

	// students cannot approve their own project
	f.act(t, "/approve", f.ownerToken, nil, http.StatusForbidden)
	// nothing to approve before submission
	f.act(t, "/approve", f.adminToken, nil, http.StatusConflict)

	d := f.act(t, "/submit", f.ownerToken, nil, http.StatusOK)
	assert.Equal(t, project.StatusSubmitted, d.Status)
	f.act(t, "/submit", f.ownerToken, nil, http.StatusConflict)

	// reject needs a reason and leaves the project untouched without one
	rec := f.env.do(t, http.MethodPost, f.path("/reject"), f.adminToken, project.ActionInput{Reason: "   "})
	checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"reason": "a reason is required to reject"})}, rec)
	before := f.get(t)
	assert.Equal(t, project.StatusSubmitted, before.Status)
	assert.Equal(t, d.Version, before.Version)

	d = f.act(t, "/reject", f.adminToken, project.ActionInput{Reason: "incomplete documents"}, http.StatusOK)
	assert.Equal(t, project.StatusRejected, d.Status)
	assert.Equal(t, "incomplete documents", d.RejectionReason.String)

	f.env.outbox.Reset()
	d = f.act(t, "/submit", f.ownerToken, nil, http.StatusOK)
	assert.Equal(t, project.StatusSubmitted, d.Status)
	assert.False(t, d.RejectionReason.Valid)
	assert.Empty(t, f.env.outbox.Sent(), "submission is not a decision")

	t.Run("stale version", func(t *testing.T) {
		f.act(t, "/approve", f.adminToken, project.ActionInput{Version: d.Version - 1}, http.StatusConflict)
	})

	d = f.act(t, "/approve", f.adminToken, project.ActionInput{Version: d.Version}, http.StatusOK)
	assert.Equal(t, project.StatusApproved, d.Status)
	assert.Contains(t, d.AllowedActions, project.CanReviewParticipants)

	sent := f.env.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, f.owner.Email, sent[0].To[0].Address)

	rec = f.env.do(t, http.MethodPost, f.path("/approve"), f.adminToken, nil)
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "the project is already approved"})}, rec)

	t.Run("approved projects are frozen", func(t *testing.T) {
		rec := f.env.do(t, http.MethodPut, f.path(""), f.ownerToken, project.UpdateProject{Name: "Renamed"})
		checkCode(t, rec, http.StatusConflict)
		rec = f.env.do(t, http.MethodDelete, f.path(""), f.adminToken, nil)
		checkCode(t, rec, http.StatusConflict)
	})

	t.Run("history", func(t *testing.T) {
		rec := f.env.do(t, http.MethodGet, f.path("/history"), f.ownerToken, nil)
		checkCode(t, rec, http.StatusOK)
		var logs []project.StatusLog
		unmarshal(t, rec, &logs)
		actions := make([]project.Action, 0, len(logs))
		for _, l := range logs {
			actions = append(actions, l.Action)
		}
		assert.Equal(t, []project.Action{
			project.ActionCreate, project.ActionSubmit, project.ActionReject, project.ActionSubmit, project.ActionApprove,
		}, actions)
		assert.Equal(t, "incomplete documents", logs[2].Reason.String)
	})
}

func Test_projectApi_open(t *testing.T) {
	f := newProjectFixture(t)

	f.act(t, "/open", f.ownerToken, nil, http.StatusForbidden)
	d := f.act(t, "/open", f.adminToken, nil, http.StatusOK)
	assert.Equal(t, project.StatusApproved, d.Status)
	f.act(t, "/open", f.adminToken, nil, http.StatusConflict)
}

func Test_projectApi_participants(t *testing.T) {
	f := newProjectFixture(t)

	approve := func(ids ...int64) project.ParticipantsInput { return project.ParticipantsInput{UserIDs: ids} }

	// participants of unapproved projects cannot be reviewed
	f.act(t, "/participants/approve", f.adminToken, approve(f.a.ID), http.StatusConflict)

	f.act(t, "/submit", f.ownerToken, nil, http.StatusOK)
	f.act(t, "/approve", f.adminToken, nil, http.StatusOK)

	tests := []struct {
		name     string
		suffix   string
		token    string
		payload  project.ParticipantsInput
		wantCode int
	}{
		{name: "student", suffix: "/participants/approve", token: f.ownerToken, payload: approve(f.a.ID), wantCode: http.StatusForbidden},
		{name: "empty selection", suffix: "/participants/approve", token: f.adminToken, payload: approve(), wantCode: http.StatusBadRequest},
		{name: "not a participant", suffix: "/participants/approve", token: f.adminToken, payload: approve(f.a.ID, f.owner.ID), wantCode: http.StatusBadRequest},
		{name: "reject without reason", suffix: "/participants/reject", token: f.adminToken, payload: approve(f.b.ID), wantCode: http.StatusBadRequest},
		{name: "revert pending", suffix: "/participants/revert", token: f.adminToken, payload: approve(f.a.ID), wantCode: http.StatusConflict},
		{name: "reapprove pending", suffix: "/participants/reapprove", token: f.adminToken, payload: approve(f.a.ID), wantCode: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.act(t, tt.suffix, tt.token, tt.payload, tt.wantCode)
		})
	}

	// batch approve is additive: C stays pending
	f.env.outbox.Reset()
	d := f.act(t, "/participants/approve", f.adminToken, approve(f.a.ID), http.StatusOK)
	a := participant(t, d, f.a.ID)
	assert.Equal(t, project.ParticipantApproved, a.Status)
	assert.Equal(t, 16, a.HoursReceived.Int)
	assert.True(t, a.ApprovedAt.Valid)
	assert.Equal(t, project.ParticipantPending, participant(t, d, f.c.ID).Status)
	assert.False(t, participant(t, d, f.c.ID).HoursReceived.Valid)
	require.Len(t, f.env.outbox.Sent(), 1)
	assert.Equal(t, f.a.Email, f.env.outbox.Sent()[0].To[0].Address)

	// approving again changes nothing
	again := f.act(t, "/participants/approve", f.adminToken, approve(f.a.ID), http.StatusOK)
	assert.Equal(t, a.Version, participant(t, again, f.a.ID).Version)

	d = f.act(t, "/participants/reject", f.adminToken, project.ParticipantsInput{UserIDs: []int64{f.b.ID}, Reason: "did not attend"}, http.StatusOK)
	b := participant(t, d, f.b.ID)
	assert.Equal(t, project.ParticipantRejected, b.Status)
	assert.Equal(t, "did not attend", b.RejectionReason.String)
	assert.False(t, b.HoursReceived.Valid)

	d = f.act(t, "/participants/reapprove", f.adminToken, approve(f.b.ID), http.StatusOK)
	b = participant(t, d, f.b.ID)
	assert.Equal(t, project.ParticipantApproved, b.Status)
	assert.Equal(t, 16, b.HoursReceived.Int)
	assert.False(t, b.RejectionReason.Valid)

	d = f.act(t, "/participants/revert", f.adminToken, approve(f.a.ID), http.StatusOK)
	a = participant(t, d, f.a.ID)
	assert.Equal(t, project.ParticipantPending, a.Status)
	assert.False(t, a.HoursReceived.Valid)
	assert.False(t, a.ApprovedAt.Valid)

	t.Run("all or nothing", func(t *testing.T) {
		// B is reverted first, then C is pending and fails the whole batch
		f.act(t, "/participants/revert", f.adminToken, approve(f.c.ID, f.b.ID), http.StatusConflict)
		assert.Equal(t, project.ParticipantApproved, participant(t, f.get(t), f.b.ID).Status)
	})

	t.Run("approved participants cannot be removed", func(t *testing.T) {
		rec := f.env.do(t, http.MethodDelete, f.path("/participants/"+itoa(f.b.ID)), f.adminToken, nil)
		checkCode(t, rec, http.StatusConflict)
		rec = f.env.do(t, http.MethodDelete, f.path("/participants/"+itoa(f.c.ID)), f.adminToken, nil)
		checkCode(t, rec, http.StatusOK)
		assert.Len(t, f.get(t).Participants, 2)
	})
}

func Test_projectApi_participantsAfterApproval(t *testing.T) {
	f := newProjectFixture(t)

	f.act(t, "/submit", f.ownerToken, nil, http.StatusOK)
	f.act(t, "/approve", f.adminToken, nil, http.StatusOK)
	f.act(t, "/participants/approve", f.adminToken, project.ParticipantsInput{UserIDs: []int64{f.a.ID, f.b.ID}}, http.StatusOK)

	// re-adding existing members is a no-op
	d := f.act(t, "/participants", f.ownerToken, project.ParticipantsInput{UserIDs: []int64{f.a.ID, f.c.ID}}, http.StatusOK)
	assert.Len(t, d.Participants, 3)

	// a fresh project opened directly starts with pending members too
	rec := f.env.do(t, http.MethodPost, "/api/projects", f.adminToken, project.NewProject{
		Name:           "Blood drive",
		Type:           project.TypeUniversityActivity,
		StartDate:      "2025-08-01",
		EndDate:        "2025-08-01",
		HoursPerPerson: 4,
		AcademicYearID: f.project.AcademicYearID,
		ParticipantIDs: []int64{f.a.ID},
	})
	checkCode(t, rec, http.StatusCreated)
	var other project.Detail
	unmarshal(t, rec, &other)
	rec = f.env.do(t, http.MethodPost, "/api/projects/"+itoa(other.ID)+"/open", f.adminToken, nil)
	checkCode(t, rec, http.StatusOK)
	unmarshal(t, rec, &other)
	require.Len(t, other.Participants, 1)
	assert.Equal(t, project.ParticipantPending, other.Participants[0].Status)

	// the first project keeps its decisions and has no duplicated rows
	d = f.get(t)
	assert.Len(t, d.Participants, 3)
	assert.Equal(t, project.ParticipantApproved, participant(t, d, f.a.ID).Status)
	assert.Equal(t, project.ParticipantApproved, participant(t, d, f.b.ID).Status)
}

func Test_projectApi_deleteMembers(t *testing.T) {
	f := newProjectFixture(t)

	// the creator owns the project
	rec := f.env.do(t, http.MethodDelete, "/api/users/"+itoa(f.owner.ID), f.adminToken, nil)
	checkCodeAndData(t, httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, map[string]string{"error": "the user still owns projects or posts"})}, rec)
	rec = f.env.do(t, http.MethodDelete, "/api/users?id="+itoa(f.a.ID)+"&id="+itoa(f.owner.ID), f.adminToken, nil)
	checkCode(t, rec, http.StatusConflict)

	// nothing was deleted by the failed batch
	d := f.get(t)
	assert.Equal(t, f.owner.ID, d.CreatedBy)
	require.Len(t, d.Participants, 3)

	// participants leave with their account
	rec = f.env.do(t, http.MethodDelete, "/api/users/"+itoa(f.a.ID), f.adminToken, nil)
	checkCode(t, rec, http.StatusNoContent)
	d = f.get(t)
	require.Len(t, d.Participants, 2)
	for _, pt := range d.Participants {
		assert.NotEqual(t, f.a.ID, pt.UserID)
		assert.NotEmpty(t, pt.Name)
	}
}

func Test_projectApi_uploadFiles(t *testing.T) {
	f := newProjectFixture(t)

	photos := func(n int) []formFile {
		files := make([]formFile, 0, n)
		for i := 0; i < n; i++ {
			files = append(files, formFile{"photos", "photo" + itoa(int64(i)) + ".png", pngContent})
		}
		return files
	}
	certificate := formFile{"certificates", "attendance.pdf", pdfContent}

	upload := func(t *testing.T, token string, files ...formFile) (int, project.Detail) {
		t.Helper()
		req, rec := newMultipartRequest(t, http.MethodPost, f.path("/files"), token, nil, files...)
		f.env.app.ServeHTTP(rec, req)
		var d project.Detail
		if rec.Code == http.StatusOK {
			unmarshal(t, rec, &d)
		}
		return rec.Code, d
	}

	t.Run("participants cannot upload", func(t *testing.T) {
		code, _ := upload(t, f.env.getToken(t, f.a), append(photos(5), certificate)...)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("first upload needs 5 photos", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, f.path("/files"), f.ownerToken, nil, append(photos(4), certificate)...)
		f.env.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"photos": "at least 5 photos are required, got 4"})}, rec)
	})

	t.Run("first upload needs a certificate", func(t *testing.T) {
		code, _ := upload(t, f.ownerToken, photos(5)...)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("photos must be images", func(t *testing.T) {
		files := append(photos(4), formFile{"photos", "photo.pdf", pdfContent}, certificate)
		code, _ := upload(t, f.ownerToken, files...)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("oversized request", func(t *testing.T) {
		req, rec := newMultipartRequest(t, http.MethodPost, f.path("/files"), f.ownerToken, nil, append(photos(5), certificate)...)
		req.ContentLength = 64 << 20
		f.env.app.ServeHTTP(rec, req)
		checkCode(t, rec, http.StatusRequestEntityTooLarge)
	})

	t.Run("first upload", func(t *testing.T) {
		files := append(photos(4), formFile{"photos", "page.html", pngContent}, certificate)
		code, d := upload(t, f.ownerToken, files...)
		require.Equal(t, http.StatusOK, code)
		require.Len(t, d.Files, 6)
		kinds := map[project.FileKind]int{}
		for _, file := range d.Files {
			kinds[file.Kind]++
			assert.Equal(t, f.owner.ID, file.UploadedBy)
			if file.Kind == project.FilePhoto {
				assert.True(t, strings.HasSuffix(file.URL, ".png"), file.URL)
			} else {
				assert.True(t, strings.HasSuffix(file.URL, ".pdf"), file.URL)
			}
		}
		assert.Equal(t, map[project.FileKind]int{project.FilePhoto: 5, project.FileCertificate: 1}, kinds)
	})

	t.Run("top-up", func(t *testing.T) {
		code, d := upload(t, f.ownerToken, photos(4)...)
		require.Equal(t, http.StatusOK, code)
		assert.Len(t, d.Files, 10)
	})

	t.Run("top-up needs a file", func(t *testing.T) {
		code, _ := upload(t, f.ownerToken)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("approved projects are frozen", func(t *testing.T) {
		f.act(t, "/open", f.adminToken, nil, http.StatusOK)
		code, _ := upload(t, f.ownerToken, photos(1)...)
		assert.Equal(t, http.StatusConflict, code)
	})
}
