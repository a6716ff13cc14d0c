package CronJobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"Meridian/Alerts"
	"Meridian/BusinessTime"
	"Meridian/Models"
	"Meridian/Store"
	"Meridian/email"
)

// Schedules, with seconds, in the business timezone.
const (
	MorningReminderSpec = "0 0 9 * * MON-FRI"
	DigestSpec          = "0 0 19 * * MON-FRI"
	StaleDraftAuditSpec = "0 30 0 * * *"
)

type Pusher interface {
	Remind(ctx context.Context, tokens map[uint][]string, r Alerts.Reminder) int
}

type StaleReporter interface {
	StaleDrafts(ctx context.Context, date string, drafts []Models.DailyPlan) error
}

// DigestMailer delivers the evening manager digest.
type DigestMailer func(ctx context.Context, d email.Digest) error

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithPusher(p Pusher) Option {
	return func(s *Scheduler) { s.pusher = p }
}

func WithDigestMailer(m DigestMailer) Option {
	return func(s *Scheduler) { s.digest = m }
}

func WithStaleReporter(r StaleReporter) Option {
	return func(s *Scheduler) { s.stale = r }
}

// Scheduler runs the daily plan housekeeping jobs.
type Scheduler struct {
	cronScheduler *cron.Cron
	store         *Store.GormStore
	now           func() time.Time
	log           *zap.Logger
	pusher        Pusher
	digest        DigestMailer
	stale         StaleReporter
	entries       map[string]cron.EntryID
}

func NewScheduler(store *Store.GormStore, log *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cronScheduler: cron.New(cron.WithSeconds(), cron.WithLocation(BusinessTime.Location())),
		store:         store,
		now:           time.Now,
		log:           log,
		entries:       map[string]cron.EntryID{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) add(name, spec string, job func(ctx context.Context) error) error {
	id, err := s.cronScheduler.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error("cron job failed", zap.String("job", name), zap.Error(err))
			return
		}
		s.log.Info("cron job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("error scheduling %s: %w", name, err)
	}
	s.entries[name] = id
	return nil
}

// Register adds every job whose collaborator is configured. The stale draft
// audit only needs the store and is always added.
func (s *Scheduler) Register() error {
	if s.pusher != nil {
		if err := s.add("morning_reminder", MorningReminderSpec, func(ctx context.Context) error {
			_, err := s.RunMorningReminder(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	if s.digest != nil {
		if err := s.add("manager_digest", DigestSpec, s.RunDigest); err != nil {
			return err
		}
	}
	return s.add("stale_draft_audit", StaleDraftAuditSpec, func(ctx context.Context) error {
		_, err := s.RunStaleDraftAudit(ctx)
		return err
	})
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	if err := s.Register(); err != nil {
		return err
	}
	s.cronScheduler.Start()
	s.log.Info("plan scheduler started", zap.Int("jobs", len(s.entries)), zap.String("zone", BusinessTime.Zone))
	return nil
}

// Stop terminates the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cronScheduler.Stop().Done()
	s.log.Info("plan scheduler stopped")
}

// Next returns when job name runs next, or the zero time if it is not scheduled.
func (s *Scheduler) Next(name string) time.Time {
	id, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}
	return s.cronScheduler.Entry(id).Schedule.Next(s.now().In(BusinessTime.Location()))
}

func (s *Scheduler) users(ctx context.Context) ([]Models.User, error) {
	var users []Models.User
	if err := s.store.DB.WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}

func (s *Scheduler) operativePlans(ctx context.Context, date string) ([]Models.DailyPlan, error) {
	return s.store.FindPlans(ctx, Store.Query{
		Where: map[string]interface{}{"date": date},
		Filters: []Store.Filter{{
			Query: "status IN ?",
			Args:  []interface{}{[]string{string(Models.PlanStatusNotStarted), string(Models.PlanStatusEODSubmitted)}},
		}},
	})
}

// RunMorningReminder pushes a reminder to every user without an operative
// plan for today and returns how many pushes went out.
func (s *Scheduler) RunMorningReminder(ctx context.Context) (int, error) {
	if s.pusher == nil {
		return 0, nil
	}
	today := BusinessTime.Today(s.now())
	users, err := s.users(ctx)
	if err != nil {
		return 0, err
	}
	plans, err := s.operativePlans(ctx, today)
	if err != nil {
		return 0, err
	}
	planned := map[uint]bool{}
	for _, p := range plans {
		planned[p.UserID] = true
	}
	var missing []uint
	for _, u := range users {
		if !planned[u.ID] {
			missing = append(missing, u.ID)
		}
	}
	tokens, err := Models.TokensForUsers(s.store.DB.WithContext(ctx), missing)
	if err != nil {
		return 0, fmt.Errorf("failed to load device tokens: %w", err)
	}
	sent := s.pusher.Remind(ctx, tokens, Alerts.Reminder{
		Title: "Plan your day",
		Body:  "You have no plan for today yet.",
		Kind:  "morning_plan",
		Date:  today,
	})
	s.log.Info("morning reminders sent", zap.String("date", today), zap.Int("users", len(missing)), zap.Int("pushes", sent))
	return sent, nil
}

// RunDigest mails the manager digest for today.
func (s *Scheduler) RunDigest(ctx context.Context) error {
	if s.digest == nil {
		return nil
	}
	today := BusinessTime.Today(s.now())
	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	plans, err := s.operativePlans(ctx, today)
	if err != nil {
		return err
	}
	return s.digest(ctx, email.BuildDigest(today, users, plans))
}

// RunStaleDraftAudit finds today's drafts that already existed when their
// owner closed out the previous day. Those were due for promotion at that
// closeout. Drafts saved after the closeout never were and are left out.
// Findings are reported, not repaired.
func (s *Scheduler) RunStaleDraftAudit(ctx context.Context) ([]Models.DailyPlan, error) {
	today := BusinessTime.Today(s.now())
	yesterday, err := BusinessTime.PrevDate(today)
	if err != nil {
		return nil, err
	}
	drafts, err := s.store.FindPlans(ctx, Store.Query{
		Where: map[string]interface{}{"date": today, "status": string(Models.PlanStatusDraft)},
		Order: "user_id",
	})
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	userIDs := make([]uint, 0, len(drafts))
	for _, d := range drafts {
		userIDs = append(userIDs, d.UserID)
	}
	closed, err := s.store.FindPlans(ctx, Store.Query{
		Where:   map[string]interface{}{"date": yesterday, "status": string(Models.PlanStatusEODSubmitted)},
		Filters: []Store.Filter{{Query: "user_id IN ?", Args: []interface{}{userIDs}}},
	})
	if err != nil {
		return nil, err
	}
	closedAt := map[uint]time.Time{}
	for _, p := range closed {
		if p.SubmittedAtEOD == nil {
			continue
		}
		if at, ok := closedAt[p.UserID]; !ok || p.SubmittedAtEOD.After(at) {
			closedAt[p.UserID] = *p.SubmittedAtEOD
		}
	}
	hasOperative := map[uint]bool{}
	live, err := s.operativePlans(ctx, today)
	if err != nil {
		return nil, err
	}
	for _, p := range live {
		hasOperative[p.UserID] = true
	}

	var stale []Models.DailyPlan
	for _, d := range drafts {
		at, ok := closedAt[d.UserID]
		if ok && !d.CreatedAt.After(at) && !hasOperative[d.UserID] {
			stale = append(stale, d)
		}
	}
	if len(stale) > 0 {
		s.log.Warn("stale drafts found", zap.String("pipeline", "partial"), zap.String("date", today), zap.Int("count", len(stale)))
		if s.stale != nil {
			if err := s.stale.StaleDrafts(ctx, today, stale); err != nil {
				return stale, err
			}
		}
	}
	return stale, nil
}
