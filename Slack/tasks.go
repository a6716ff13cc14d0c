package Slack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"Meridian/Models"
	"Meridian/Planner"
)

// UserLookup resolves the console user behind a Slack profile email.
type UserLookup func(ctx context.Context, email string) (*Models.User, error)

// Commands answers "!" commands about the caller's own plans.
type Commands struct {
	Engine *Planner.Engine
	Users  UserLookup
}

func (c *Commands) Process(ctx context.Context, command, email string) (string, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty command")
	}

	switch strings.ToLower(parts[0]) {
	case "!help":
		return helpText, nil
	case "!today", "!tomorrow", "!candidates":
	default:
		return "", fmt.Errorf("unknown command %q", parts[0])
	}

	user, err := c.Users(ctx, email)
	if err != nil {
		return "I could not match your Slack account to a console user.", nil
	}

	switch strings.ToLower(parts[0]) {
	case "!today":
		return c.planText(ctx, user.ID, c.Engine.Today())
	case "!tomorrow":
		return c.planText(ctx, user.ID, c.Engine.Tomorrow())
	default:
		plan, err := c.Engine.PlanFor(ctx, user.ID, c.Engine.Today())
		if errors.Is(err, Planner.ErrPlanNotFound) || (err == nil && !plan.IsOpen()) {
			return "No open plan today, nothing to roll over.", nil
		}
		if err != nil {
			return "", err
		}
		candidates := Planner.GetRolloverCandidates(plan)
		if len(candidates) == 0 {
			return "Everything on today's plan is done.", nil
		}
		var b strings.Builder
		b.WriteString("*Still open today:*")
		for _, t := range candidates {
			fmt.Fprintf(&b, "\n• %s", t.Title)
		}
		return b.String(), nil
	}
}

func (c *Commands) planText(ctx context.Context, userID uint, date string) (string, error) {
	plan, err := c.Engine.PlanFor(ctx, userID, date)
	if errors.Is(err, Planner.ErrPlanNotFound) {
		return fmt.Sprintf("No plan for %s yet.", date), nil
	}
	if err != nil {
		return "", err
	}
	return PlanText(plan), nil
}

// PlanText lists a plan's morning tasks with their closeout marks.
func PlanText(plan *Models.DailyPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Plan for %s* (%s)", plan.Date, plan.Status)
	if len(plan.MorningTasks) == 0 {
		b.WriteString("\n_no tasks_")
	}
	for i, t := range plan.MorningTasks {
		mark := ":white_square:"
		switch {
		case t.CompletedToday:
			mark = ":white_check_mark:"
		case t.RolloverToTomorrow:
			mark = ":arrow_right:"
		}
		fmt.Fprintf(&b, "\n%d. %s %s", i+1, mark, t.Title)
	}
	return b.String()
}

const helpText = "*Daily Plan Commands*\n" +
	"`!today` - Show today's plan\n" +
	"`!tomorrow` - Show tomorrow's plan or draft\n" +
	"`!candidates` - List today's unfinished tasks\n" +
	"`!help` - Show this help message"

// Listen runs a socket mode client and answers commands posted in channel
// until ctx is done.
func Listen(ctx context.Context, botToken, appToken, channel string, commands *Commands, log *zap.Logger) error {
	if botToken == "" || appToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN and SLACK_APP_TOKEN must be set")
	}
	api := slack.New(botToken, slack.OptionAppLevelToken(appToken), slack.OptionDebug(false))
	socketClient := socketmode.New(api)

	go func() {
		for envelope := range socketClient.Events {
			if envelope.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			eventsAPIEvent, ok := envelope.Data.(slackevents.EventsAPIEvent)
			if !ok {
				log.Warn("unexpected slack event", zap.String("type", string(envelope.Type)))
				continue
			}
			socketClient.Ack(*envelope.Request)

			if eventsAPIEvent.Type != slackevents.CallbackEvent {
				continue
			}
			ev, ok := eventsAPIEvent.InnerEvent.Data.(*slackevents.MessageEvent)
			if !ok || ev.BotID != "" || ev.Channel != channel || !strings.HasPrefix(ev.Text, "!") {
				continue
			}

			profile, err := api.GetUserInfoContext(ctx, ev.User)
			if err != nil {
				log.Warn("slack user lookup failed", zap.String("slack_user", ev.User), zap.Error(err))
				continue
			}
			response, err := commands.Process(ctx, ev.Text, profile.Profile.Email)
			if err != nil {
				log.Info("slack command rejected", zap.String("text", ev.Text), zap.Error(err))
				continue
			}
			if _, _, err := api.PostMessageContext(ctx, ev.Channel, slack.MsgOptionText(response, false)); err != nil {
				log.Warn("slack reply failed", zap.Error(err))
			}
		}
	}()

	log.Info("starting slack command listener", zap.String("channel", channel))
	return socketClient.RunContext(ctx)
}
