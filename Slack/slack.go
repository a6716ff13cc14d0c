// Package Slack posts plan events to a channel and answers plan commands
// typed there.
package Slack

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"Meridian/Models"
)

// poster is the part of *slack.Client the notifier uses.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notifier reports finalized plans, failed promotions and stale drafts.
// Plan events are posted in the background so a slow Slack API never holds
// up the submit request.
type Notifier struct {
	api      poster
	channel  string
	log      *zap.Logger
	timeout  time.Duration
	inflight sync.WaitGroup
}

func NewNotifier(botToken, channel string, log *zap.Logger) *Notifier {
	return newNotifier(slack.New(botToken, slack.OptionDebug(false)), channel, log)
}

func newNotifier(api poster, channel string, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{api: api, channel: channel, log: log, timeout: 10 * time.Second}
}

func (n *Notifier) post(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	block := slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
	_, _, err := n.api.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(block),
	)
	if err != nil {
		return fmt.Errorf("failed to post to slack: %w", err)
	}
	return nil
}

// background posts text on its own goroutine. The request context is
// detached so the post outlives the handler that triggered it.
func (n *Notifier) background(ctx context.Context, text string, failed func(error)) {
	ctx = context.WithoutCancel(ctx)
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		if err := n.post(ctx, text); err != nil {
			failed(err)
		}
	}()
}

// Wait blocks until every background post has finished.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}

// PlanSubmitted posts the EOD summary of plan.
func (n *Notifier) PlanSubmitted(ctx context.Context, plan *Models.DailyPlan, promoted *Models.DailyPlan) {
	planID := plan.ID
	n.background(ctx, SummaryText(plan, promoted), func(err error) {
		n.log.Warn("eod summary not posted", zap.Uint("plan_id", planID), zap.Error(err))
	})
}

// PromotionFailed warns that plan is closed but tomorrow's draft is not live.
func (n *Notifier) PromotionFailed(ctx context.Context, plan *Models.DailyPlan, cause error) {
	text := fmt.Sprintf(":warning: *%s* closed out %s but tomorrow's draft was not activated.\n`%v`",
		plan.UserName, plan.Date, cause)
	planID := plan.ID
	n.background(ctx, text, func(err error) {
		n.log.Error("promotion failure not posted", zap.Uint("plan_id", planID), zap.Error(err))
	})
}

// StaleDrafts reports drafts left behind after their previous day was closed.
func (n *Notifier) StaleDrafts(ctx context.Context, date string, drafts []Models.DailyPlan) error {
	if len(drafts) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, ":mag: %d draft(s) for %s are still drafts although the previous day was closed out:\n", len(drafts), date)
	for _, d := range drafts {
		fmt.Fprintf(&b, "• %s (plan #%d, %d tasks)\n", d.UserName, d.ID, len(d.MorningTasks))
	}
	return n.post(ctx, strings.TrimRight(b.String(), "\n"))
}

// SummaryText is the Slack message for a finalized plan.
func SummaryText(plan *Models.DailyPlan, promoted *Models.DailyPlan) string {
	done := len(plan.EODTasksCompleted) - len(plan.EODTasksAdded)
	var b strings.Builder
	fmt.Fprintf(&b, ":white_check_mark: *%s* closed out %s: %d/%d done", plan.UserName, plan.Date, done, len(plan.MorningTasks))
	if n := len(plan.EODTasksAdded); n > 0 {
		fmt.Fprintf(&b, ", %d ad hoc", n)
	}
	if n := len(plan.RolledOverTasks); n > 0 {
		fmt.Fprintf(&b, ", %d rolled over", n)
	}
	for _, t := range plan.RolledOverTasks {
		fmt.Fprintf(&b, "\n• %s _%s_", t.Title, t.RolloverReason)
		if t.RolloverNotes != "" {
			fmt.Fprintf(&b, ": %s", t.RolloverNotes)
		}
	}
	if promoted != nil {
		fmt.Fprintf(&b, "\nPlan for %s is now active (%d tasks).", promoted.Date, len(promoted.MorningTasks))
	}
	return b.String()
}
