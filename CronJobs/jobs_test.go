package CronJobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"Meridian/Alerts"
	"Meridian/BusinessTime"
	"Meridian/Models"
	"Meridian/Planner"
	"Meridian/Store"
	"Meridian/email"
)

// Wednesday 2024-05-01, 08:00 in New York.
var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakePusher struct {
	tokens map[uint][]string
}

func (f *fakePusher) Remind(_ context.Context, tokens map[uint][]string, _ Alerts.Reminder) int {
	f.tokens = tokens
	n := 0
	for _, list := range tokens {
		n += len(list)
	}
	return n
}

type fakeReporter struct {
	date   string
	drafts []Models.DailyPlan
}

func (f *fakeReporter) StaleDrafts(_ context.Context, date string, drafts []Models.DailyPlan) error {
	f.date, f.drafts = date, drafts
	return nil
}

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *Store.GormStore) {
	t.Helper()
	db, err := Models.OpenInMemory(t.Name())
	require.NoError(t, err)
	s := Store.New(db)
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewScheduler(s, zap.NewNop(), opts...), s
}

func seedUsers(t *testing.T, s *Store.GormStore, names ...string) []Models.User {
	t.Helper()
	var users []Models.User
	for _, name := range names {
		u := Models.User{Name: name, Email: name + "@x.io", Permission: Models.PermissionStaff}
		require.NoError(t, s.DB.Create(&u).Error)
		users = append(users, u)
	}
	return users
}

func TestRegisterSchedulesInBusinessZone(t *testing.T) {
	sched, _ := newTestScheduler(t,
		WithPusher(&fakePusher{}),
		WithDigestMailer(func(context.Context, email.Digest) error { return nil }),
	)
	require.NoError(t, sched.Register())
	assert.Len(t, sched.entries, 3)

	next := sched.Next("morning_reminder").In(BusinessTime.Location())
	assert.Equal(t, "2024-05-01 09:00", next.Format("2006-01-02 15:04"))

	next = sched.Next("stale_draft_audit").In(BusinessTime.Location())
	assert.Equal(t, "2024-05-02 00:30", next.Format("2006-01-02 15:04"))

	assert.True(t, sched.Next("unknown").IsZero())
}

func TestRegisterSkipsUnconfiguredJobs(t *testing.T) {
	sched, _ := newTestScheduler(t)
	require.NoError(t, sched.Register())
	assert.Len(t, sched.entries, 1)
	assert.Contains(t, sched.entries, "stale_draft_audit")
}

func TestMorningReminderSkipsPlannedUsers(t *testing.T) {
	pusher := &fakePusher{}
	sched, s := newTestScheduler(t, WithPusher(pusher))
	ctx := context.Background()
	users := seedUsers(t, s, "alex", "blair", "casey")

	require.NoError(t, s.CreatePlan(ctx, &Models.DailyPlan{UserID: users[0].ID, Date: "2024-05-01", Status: Models.PlanStatusNotStarted}))
	// A draft is not a plan for the day.
	require.NoError(t, s.CreatePlan(ctx, &Models.DailyPlan{UserID: users[1].ID, Date: "2024-05-01", Status: Models.PlanStatusDraft}))
	for _, tok := range []Models.FCMToken{{UserID: users[0].ID, Value: "a"}, {UserID: users[1].ID, Value: "b"}, {UserID: users[2].ID, Value: "c"}} {
		require.NoError(t, s.DB.Create(&tok).Error)
	}

	sent, err := sched.RunMorningReminder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, map[uint][]string{users[1].ID: {"b"}, users[2].ID: {"c"}}, pusher.tokens)
}

func TestDigest(t *testing.T) {
	var got email.Digest
	sched, s := newTestScheduler(t, WithDigestMailer(func(_ context.Context, d email.Digest) error {
		got = d
		return nil
	}))
	ctx := context.Background()
	users := seedUsers(t, s, "alex", "blair")
	require.NoError(t, s.CreatePlan(ctx, &Models.DailyPlan{UserID: users[0].ID, Date: "2024-05-01", Status: Models.PlanStatusEODSubmitted}))

	require.NoError(t, sched.RunDigest(ctx))
	assert.Equal(t, "2024-05-01", got.Date)
	assert.Equal(t, 1, got.Submitted)
	assert.Equal(t, []string{"blair"}, got.Missing)
}

func TestStaleDraftAudit(t *testing.T) {
	reporter := &fakeReporter{}
	sched, s := newTestScheduler(t, WithStaleReporter(reporter))
	ctx := context.Background()
	users := seedUsers(t, s, "alex", "blair", "casey", "dana")

	// Yesterday's closeouts at 17:00 New York.
	closedAt := time.Date(2024, 4, 30, 21, 0, 0, 0, time.UTC)
	before := closedAt.Add(-3 * time.Hour)
	after := closedAt.Add(5 * time.Minute)
	closed := func(user uint) *Models.DailyPlan {
		return &Models.DailyPlan{UserID: user, Date: "2024-04-30", Status: Models.PlanStatusEODSubmitted, SubmittedAtEOD: &closedAt}
	}
	draft := func(user uint, name string, created time.Time) *Models.DailyPlan {
		p := &Models.DailyPlan{UserID: user, UserName: name, Date: "2024-05-01", Status: Models.PlanStatusDraft}
		p.CreatedAt = created
		return p
	}

	// alex drafted today before closing yesterday, so the closeout should
	// have promoted it.
	require.NoError(t, s.CreatePlan(ctx, closed(users[0].ID)))
	stale := draft(users[0].ID, "alex", before)
	require.NoError(t, s.CreatePlan(ctx, stale))
	// blair never closed yesterday.
	require.NoError(t, s.CreatePlan(ctx, &Models.DailyPlan{UserID: users[1].ID, Date: "2024-04-30", Status: Models.PlanStatusNotStarted}))
	require.NoError(t, s.CreatePlan(ctx, draft(users[1].ID, "blair", before)))
	// casey already has a live plan for today.
	require.NoError(t, s.CreatePlan(ctx, closed(users[2].ID)))
	require.NoError(t, s.CreatePlan(ctx, draft(users[2].ID, "casey", before)))
	require.NoError(t, s.CreatePlan(ctx, &Models.DailyPlan{UserID: users[2].ID, Date: "2024-05-01", Status: Models.PlanStatusNotStarted}))
	// dana closed out first and planned today afterwards, which is the
	// normal evening flow and nothing was due for promotion.
	require.NoError(t, s.CreatePlan(ctx, closed(users[3].ID)))
	require.NoError(t, s.CreatePlan(ctx, draft(users[3].ID, "dana", after)))

	found, err := sched.RunStaleDraftAudit(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
	assert.Equal(t, "2024-05-01", reporter.date)
	assert.Len(t, reporter.drafts, 1)

	stored, err := s.GetPlan(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, Models.PlanStatusDraft, stored.Status, "audit does not repair")
}

func TestStaleDraftAuditIgnoresDraftsSavedAfterCloseout(t *testing.T) {
	reporter := &fakeReporter{}
	sched, s := newTestScheduler(t, WithStaleReporter(reporter))
	ctx := context.Background()
	engine := Planner.NewEngine(s, Planner.WithClock(func() time.Time { return time.Date(2024, 4, 30, 21, 0, 0, 0, time.UTC) }))
	alex := seedUsers(t, s, "alex")[0]
	owner := Planner.OwnerOf(alex)

	plan, err := engine.SubmitMorning(ctx, owner, []Planner.Planned{{Task: Planner.Task{Title: "Call bank"}}}, "")
	require.NoError(t, err)
	c := Planner.NewCloseout(plan)
	require.NoError(t, c.MarkCompleted(0))
	res, err := engine.SubmitEOD(ctx, plan.ID, c, "")
	require.NoError(t, err)
	assert.Nil(t, res.Promoted)

	_, err = engine.SaveDraft(ctx, owner, "2024-05-01", []Planner.Planned{{Task: Planner.Task{Title: "Send quote"}}}, "")
	require.NoError(t, err)

	found, err := sched.RunStaleDraftAudit(ctx)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Nil(t, reporter.drafts)
}
