package schedulersvc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
)

type (
	counter int

	adminList []user.User

	recorder struct {
		sent []*core.EmailMessage
	}

	nopLogger struct{}
)

func (c *counter) CountPending(context.Context) (int, error)   { return int(*c), nil }
func (c *counter) CountSubmitted(context.Context) (int, error) { return int(*c), nil }

func count(n int) *counter {
	c := counter(n)
	return &c
}

func (a adminList) Admins(context.Context) ([]user.User, error) { return a, nil }

func (r *recorder) SendMessages(messages ...*core.EmailMessage) {
	r.sent = append(r.sent, messages...)
}

func (*nopLogger) Debug(string, ...interface{}) {}
func (*nopLogger) Info(string, ...interface{})  {}
func (*nopLogger) Warn(string, ...interface{})  {}
func (*nopLogger) Error(string, ...interface{}) {}
func (*nopLogger) Fatal(string, ...interface{}) {}

func TestSendDigest(t *testing.T) {
	conf := &core.Config{Scheduler: core.SchedulerConfig{DigestSpec: "0 8 * * *"}}
	admins := adminList{
		{Name: "Admin A", Email: "a@example.com", Role: user.RoleAdmin},
		{Name: "Admin B", Email: "b@example.com", Role: user.RoleAdmin},
	}

	t.Run("empty queue", func(t *testing.T) {
		rec := &recorder{}
		s := New(count(0), count(0), admins, rec, &nopLogger{}, conf)

		n, err := s.SendDigest(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, rec.sent)
	})

	t.Run("one email per admin", func(t *testing.T) {
		rec := &recorder{}
		s := New(count(3), count(0), admins, rec, &nopLogger{}, conf)

		n, err := s.SendDigest(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, rec.sent, 2)
		assert.Equal(t, "review_digest", rec.sent[0].TemplateName)
		assert.Equal(t, "b@example.com", rec.sent[1].To[0].Address)
		assert.Equal(t, digestData{PendingSubmissions: 3}, rec.sent[0].TemplateData)
	})
}

func TestStart_invalidSpec(t *testing.T) {
	conf := &core.Config{Scheduler: core.SchedulerConfig{DigestSpec: "every now and then"}}
	s := New(count(0), count(0), adminList{}, &recorder{}, &nopLogger{}, conf)
	assert.Error(t, s.Start())
}

func TestNew_nilDependency(t *testing.T) {
	conf := &core.Config{}
	assert.Panics(t, func() { New(nil, count(0), adminList{}, &recorder{}, &nopLogger{}, conf) })
	assert.NotPanics(t, func() { New(count(0), count(0), adminList{}, &recorder{}, &nopLogger{}, conf) })
}
