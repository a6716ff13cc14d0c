package Controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/exp/slices"

	"Meridian/BusinessTime"
	"Meridian/middleware"
)

// LogGroup is the requests of one route with their latency figures.
type LogGroup struct {
	Path        string               `json:"path"`
	Method      string               `json:"method"`
	Count       int                  `json:"count"`
	AvgLatency  float64              `json:"avg_latency_ms"`
	MinLatency  float64              `json:"min_latency_ms"`
	MaxLatency  float64              `json:"max_latency_ms"`
	SuccessRate float64              `json:"success_rate"`
	Logs        []middleware.LogData `json:"logs"`
}

// LogController reads back the request log the logging middleware writes.
type LogController struct {
	Path string
	Now  func() time.Time
}

func NewLogController(path string) *LogController {
	return &LogController{Path: path, Now: time.Now}
}

// window reads date_from and date_to as business dates, defaulting to
// today.
func (c *LogController) window(ctx *fiber.Ctx) (time.Time, time.Time, error) {
	today := BusinessTime.Today(c.Now())
	from := ctx.Query("date_from", today)
	to := ctx.Query("date_to", today)
	start, _, err := BusinessTime.DayBounds(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	_, end, err := BusinessTime.DayBounds(to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// read returns the entries logged inside [from, to]. A missing file is an
// empty log.
func (c *LogController) read(from, to time.Time) ([]middleware.LogData, error) {
	file, err := os.Open(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var out []middleware.LogData
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry middleware.LogData
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Timestamp.Before(from) || entry.Timestamp.After(to) {
			continue
		}
		out = append(out, entry)
	}
	return out, scanner.Err()
}

func filterLogs(logs []middleware.LogData, path, method, status string) []middleware.LogData {
	wantStatus, statusErr := strconv.Atoi(status)
	var out []middleware.LogData
	for _, l := range logs {
		if path != "" && !strings.Contains(strings.ToLower(l.Path), strings.ToLower(path)) {
			continue
		}
		if method != "" && !strings.EqualFold(l.Method, method) {
			continue
		}
		if status != "" && statusErr == nil && l.Status != wantStatus {
			continue
		}
		out = append(out, l)
	}
	return out
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

func successful(status int) bool {
	return status >= 200 && status < 300
}

// groupLogs groups entries by method and path, busiest route first.
func groupLogs(logs []middleware.LogData) []LogGroup {
	index := map[string]int{}
	var groups []LogGroup
	for _, l := range logs {
		key := l.Method + " " + l.Path
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, LogGroup{Path: l.Path, Method: l.Method, MinLatency: millis(l.Latency)})
		}
		g := &groups[i]
		ms := millis(l.Latency)
		g.AvgLatency = (g.AvgLatency*float64(g.Count) + ms) / float64(g.Count+1)
		g.MinLatency = min(g.MinLatency, ms)
		g.MaxLatency = max(g.MaxLatency, ms)
		ok = successful(l.Status)
		hit := 0.0
		if ok {
			hit = 1
		}
		g.SuccessRate = (g.SuccessRate*float64(g.Count) + hit) / float64(g.Count+1)
		g.Count++
		g.Logs = append(g.Logs, l)
	}
	slices.SortStableFunc(groups, func(a, b LogGroup) int { return b.Count - a.Count })
	return groups
}

// GetLogs lists request logs grouped by route, paginated by group.
func (c *LogController) GetLogs(ctx *fiber.Ctx) error {
	from, to, err := c.window(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
	}
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}

	logs, err := c.read(from, to)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read logs", "message": err.Error()})
	}
	groups := groupLogs(filterLogs(logs, ctx.Query("path"), ctx.Query("method"), ctx.Query("status")))

	total := 0
	for _, g := range groups {
		total += g.Count
	}
	start := min((page-1)*pageSize, len(groups))
	end := min(start+pageSize, len(groups))

	return ctx.JSON(fiber.Map{
		"groups":       groups[start:end],
		"total_logs":   total,
		"total_groups": len(groups),
		"page":         page,
		"page_size":    pageSize,
		"total_pages":  (len(groups) + pageSize - 1) / pageSize,
		"date_from":    from,
		"date_to":      to,
	})
}

// GetLogStats summarizes request counts, latency and the busiest paths.
func (c *LogController) GetLogStats(ctx *fiber.Ctx) error {
	from, to, err := c.window(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
	}
	logs, err := c.read(from, to)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to read logs", "message": err.Error()})
	}

	var ok, failed int
	var total, minLatency, maxLatency time.Duration
	methods := map[string]int{}
	statuses := map[int]int{}
	paths := map[string]int{}
	for i, l := range logs {
		if successful(l.Status) {
			ok++
		} else if l.Status >= 400 {
			failed++
		}
		total += l.Latency
		if i == 0 || l.Latency < minLatency {
			minLatency = l.Latency
		}
		maxLatency = max(maxLatency, l.Latency)
		methods[l.Method]++
		statuses[l.Status]++
		paths[l.Path]++
	}

	type pathCount struct {
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	top := make([]pathCount, 0, len(paths))
	for p, n := range paths {
		top = append(top, pathCount{Path: p, Count: n})
	}
	slices.SortFunc(top, func(a, b pathCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Path, b.Path)
	})
	if len(top) > 10 {
		top = top[:10]
	}

	var avg time.Duration
	rate := 0.0
	if len(logs) > 0 {
		avg = total / time.Duration(len(logs))
		rate = float64(ok) / float64(len(logs)) * 100
	}
	return ctx.JSON(fiber.Map{
		"total_requests":      len(logs),
		"successful_requests": ok,
		"error_requests":      failed,
		"success_rate":        rate,
		"avg_latency_ms":      millis(avg),
		"min_latency_ms":      millis(minLatency),
		"max_latency_ms":      millis(maxLatency),
		"method_stats":        methods,
		"status_stats":        statuses,
		"top_paths":           top,
		"date_from":           from,
		"date_to":             to,
	})
}
