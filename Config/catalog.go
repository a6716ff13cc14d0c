package Config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/yosuke-furukawa/json5/encoding/json5"
	"golang.org/x/exp/slices"

	"Meridian/Planner"
)

// NotesReason is the only rollover reason the closeout gate demands notes
// for. needs_notes in a catalog must agree with it.
const NotesReason = Planner.ReasonOther

//go:embed catalog.json5
var defaultCatalog []byte

type RolloverReason struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	NeedsNotes bool   `json:"needs_notes"`
}

// Catalog holds the pick lists the planning screens offer.
type Catalog struct {
	RolloverReasons []RolloverReason `json:"rollover_reasons"`
	Departments     []string         `json:"departments"`
	Priorities      []string         `json:"priorities"`
	ActivityPoints  map[string]int   `json:"activity_points"`
}

// LoadCatalog reads the catalog at path, or the built-in one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json5.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.RolloverReasons) == 0 {
		return nil, fmt.Errorf("catalog has no rollover reasons")
	}
	for i, r := range c.RolloverReasons {
		if r.Code == NotesReason {
			c.RolloverReasons[i].NeedsNotes = true
			continue
		}
		if r.NeedsNotes {
			return nil, fmt.Errorf("rollover reason %q cannot need notes, only %q does", r.Code, NotesReason)
		}
	}
	if c.ActivityPoints == nil {
		c.ActivityPoints = map[string]int{}
	}
	return &c, nil
}

func (c *Catalog) ValidReason(code string) bool {
	return slices.ContainsFunc(c.RolloverReasons, func(r RolloverReason) bool { return r.Code == code })
}

func (c *Catalog) ValidDepartment(name string) bool {
	return slices.Contains(c.Departments, name)
}

func (c *Catalog) ValidPriority(p string) bool {
	return slices.Contains(c.Priorities, p)
}
