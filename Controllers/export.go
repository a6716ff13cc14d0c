package Controllers

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"

	"Meridian/BusinessTime"
	"Meridian/Models"
	"Meridian/middleware"
)

const (
	plansSheet     = "Plans"
	rolloversSheet = "Rollovers"
)

var (
	planHeaders = []string{
		"Date", "User", "Department", "Status", "Planned", "Completed",
		"Ad Hoc", "Rolled Over", "Morning Submitted", "EOD Submitted", "EOD Notes",
	}
	rolloverHeaders = []string{"Date", "User", "Task", "Priority", "Reason", "Notes"}
)

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

// PlansWorkbook lays plans out as one row per plan plus one row per rolled
// over task on a second sheet. Times are shown in the business timezone.
func PlansWorkbook(plans []Models.DailyPlan) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range []string{plansSheet, rolloversSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("error creating sheet: %w", err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("error removing default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for sheet, headers := range map[string][]string{plansSheet: planHeaders, rolloversSheet: rolloverHeaders} {
		values := make([]interface{}, len(headers))
		for i, h := range headers {
			values[i] = h
		}
		if err := writeRow(f, sheet, 1, values); err != nil {
			return nil, err
		}
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return nil, err
		}
		last, _ := excelize.ColumnNumberToName(len(headers))
		if err := f.SetColWidth(sheet, "A", last, 16); err != nil {
			return nil, err
		}
	}

	stamp := func(p *Models.DailyPlan, morning bool) string {
		t := p.SubmittedAtEOD
		if morning {
			t = p.SubmittedAtMorning
		}
		if t == nil {
			return ""
		}
		return t.In(BusinessTime.Location()).Format("2006-01-02 15:04")
	}

	rolloverRow := 2
	for i := range plans {
		p := &plans[i]
		adHoc := len(p.EODTasksAdded)
		if err := writeRow(f, plansSheet, i+2, []interface{}{
			p.Date,
			p.UserName,
			p.Department,
			string(p.Status),
			len(p.MorningTasks),
			len(p.EODTasksCompleted) - adHoc,
			adHoc,
			len(p.RolledOverTasks),
			stamp(p, true),
			stamp(p, false),
			p.NotesEOD,
		}); err != nil {
			return nil, err
		}
		for _, t := range p.RolledOverTasks {
			if err := writeRow(f, rolloversSheet, rolloverRow, []interface{}{
				p.Date, p.UserName, t.Title, t.Priority, t.RolloverReason, t.RolloverNotes,
			}); err != nil {
				return nil, err
			}
			rolloverRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %w", err)
	}
	return buf, nil
}

// Export downloads the caller's plan history as xlsx. Managers may pass
// user_id to export someone else's.
func (c *PlanController) Export(ctx *fiber.Ctx) error {
	user, _ := middleware.CurrentUser(ctx)
	userID := user.ID
	if raw := ctx.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
		}
		if uint(id) != user.ID && user.Permission < Models.PermissionManager {
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Only managers can export other users"})
		}
		userID = uint(id)
	}
	from, to := ctx.Query("from"), ctx.Query("to")
	for _, d := range []string{from, to} {
		if d != "" && !BusinessTime.ValidDate(d) {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
		}
	}

	plans, err := c.Engine.History(ctx.UserContext(), userID, from, to, true)
	if err != nil {
		return c.failed(ctx, "Failed to load plan history", err)
	}
	buf, err := PlansWorkbook(plans)
	if err != nil {
		return c.failed(ctx, "Failed to build workbook", err)
	}

	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="plans-%d-%s.xlsx"`, userID, c.Engine.Today()))
	return ctx.Send(buf.Bytes())
}
