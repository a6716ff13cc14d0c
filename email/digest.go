package email

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/exp/slices"

	"Meridian/Models"
)

const DigestTemplate = "digest"

type DigestRow struct {
	UserName   string
	Department string
	Status     Models.PlanStatus
	Planned    int
	Completed  int
	RolledOver int
	AdHoc      int
	Rollovers  []Models.TaskEntry
	NotesEOD   string
}

// Digest is the manager's view of one business day across the team.
type Digest struct {
	Date      string
	Rows      []DigestRow
	Missing   []string
	Submitted int
	Open      int
}

// BuildDigest summarizes the operative plans of date. Drafts are ignored, and
// users with no operative plan are listed as missing.
func BuildDigest(date string, users []Models.User, plans []Models.DailyPlan) Digest {
	best := map[uint]Models.DailyPlan{}
	for _, p := range plans {
		if p.Date != date || p.Status == Models.PlanStatusDraft {
			continue
		}
		cur, ok := best[p.UserID]
		if !ok || (cur.Status != Models.PlanStatusEODSubmitted && p.Status == Models.PlanStatusEODSubmitted) {
			best[p.UserID] = p
		}
	}

	d := Digest{Date: date}
	for _, u := range users {
		p, ok := best[u.ID]
		if !ok {
			d.Missing = append(d.Missing, u.Name)
			continue
		}
		row := DigestRow{
			UserName:   u.Name,
			Department: u.Department,
			Status:     p.Status,
			Planned:    len(p.MorningTasks),
			AdHoc:      len(p.EODTasksAdded),
			Rollovers:  p.RolledOverTasks,
			NotesEOD:   p.NotesEOD,
		}
		if p.Status == Models.PlanStatusEODSubmitted {
			d.Submitted++
			row.Completed = len(p.EODTasksCompleted) - len(p.EODTasksAdded)
			row.RolledOver = len(p.RolledOverTasks)
		} else {
			d.Open++
		}
		d.Rows = append(d.Rows, row)
	}
	slices.SortStableFunc(d.Rows, func(a, b DigestRow) int {
		if c := strings.Compare(a.Department, b.Department); c != 0 {
			return c
		}
		return strings.Compare(a.UserName, b.UserName)
	})
	slices.Sort(d.Missing)
	return d
}

// RenderDigest renders the digest template with views.
func RenderDigest(views fiber.Views, d Digest) (string, error) {
	var buf bytes.Buffer
	if err := views.Render(&buf, DigestTemplate, d); err != nil {
		return "", fmt.Errorf("failed to render digest: %w", err)
	}
	return buf.String(), nil
}

// SendDigest renders d and mails it to the managers in to.
func SendDigest(ctx context.Context, sender Sender, views fiber.Views, to []string, d Digest) error {
	body, err := RenderDigest(views, d)
	if err != nil {
		return err
	}
	return sender.Send(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("Daily plans for %s: %d submitted, %d open, %d missing", d.Date, d.Submitted, d.Open, len(d.Missing)),
		Body:    body,
		IsHTML:  true,
	})
}
