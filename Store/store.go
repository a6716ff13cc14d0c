// Package Store is the entity store client the planning code talks to:
// filter, sort and paginate reads plus create, partial update and delete of
// named record collections, all on gorm.
package Store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"Meridian/Models"
)

var ErrNotFound = errors.New("record not found")

// Filter is a raw condition such as "date >= ?".
type Filter struct {
	Query string
	Args  []interface{}
}

// Query selects records of one collection. Where holds column equality
// conditions; Filters holds anything more involved.
type Query struct {
	Where   map[string]interface{}
	Filters []Filter
	Order   string
	Limit   int
	Offset  int
}

// Collection is the CRUD surface of one record type.
type Collection[T any] struct {
	Name string
	db   *gorm.DB
}

func NewCollection[T any](db *gorm.DB, name string) Collection[T] {
	return Collection[T]{Name: name, db: db}
}

func (c Collection[T]) scoped(ctx context.Context, q Query) *gorm.DB {
	tx := c.db.WithContext(ctx).Model(new(T))
	if len(q.Where) > 0 {
		tx = tx.Where(q.Where)
	}
	for _, f := range q.Filters {
		tx = tx.Where(f.Query, f.Args...)
	}
	if q.Order != "" {
		tx = tx.Order(q.Order)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	return tx
}

// Find returns every record matching q.
func (c Collection[T]) Find(ctx context.Context, q Query) ([]T, error) {
	var out []T
	if err := c.scoped(ctx, q).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("find %s: %w", c.Name, err)
	}
	return out, nil
}

// Count returns how many records match q, ignoring its limit and offset.
func (c Collection[T]) Count(ctx context.Context, q Query) (int64, error) {
	q.Limit, q.Offset, q.Order = 0, 0, ""
	var n int64
	if err := c.scoped(ctx, q).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", c.Name, err)
	}
	return n, nil
}

// Get loads one record by primary key.
func (c Collection[T]) Get(ctx context.Context, id uint) (*T, error) {
	out := new(T)
	err := c.db.WithContext(ctx).First(out, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get %s %d: %w", c.Name, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", c.Name, id, err)
	}
	return out, nil
}

// Create inserts rec and fills in its generated fields.
func (c Collection[T]) Create(ctx context.Context, rec *T) error {
	if err := c.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create %s: %w", c.Name, err)
	}
	return nil
}

// Update writes the named fields of patch onto record id and returns the
// stored result. Zero values in named fields are written too. There is no
// version check: the last writer wins.
func (c Collection[T]) Update(ctx context.Context, id uint, patch *T, fields ...string) (*T, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("update %s %d: no fields given", c.Name, id)
	}
	tx := c.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Select(fields).Updates(patch)
	if tx.Error != nil {
		return nil, fmt.Errorf("update %s %d: %w", c.Name, id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, fmt.Errorf("update %s %d: %w", c.Name, id, ErrNotFound)
	}
	return c.Get(ctx, id)
}

// Delete soft deletes record id.
func (c Collection[T]) Delete(ctx context.Context, id uint) error {
	tx := c.db.WithContext(ctx).Delete(new(T), id)
	if tx.Error != nil {
		return fmt.Errorf("delete %s %d: %w", c.Name, id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("delete %s %d: %w", c.Name, id, ErrNotFound)
	}
	return nil
}

// GormStore groups the collections of the console.
type GormStore struct {
	DB         *gorm.DB
	Plans      Collection[Models.DailyPlan]
	Tasks      Collection[Models.Task]
	Activities Collection[Models.Activity]
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{
		DB:         db,
		Plans:      NewCollection[Models.DailyPlan](db, "DailyPlan"),
		Tasks:      NewCollection[Models.Task](db, "Task"),
		Activities: NewCollection[Models.Activity](db, "Activity"),
	}
}

func (s *GormStore) FindPlans(ctx context.Context, q Query) ([]Models.DailyPlan, error) {
	return s.Plans.Find(ctx, q)
}

func (s *GormStore) GetPlan(ctx context.Context, id uint) (*Models.DailyPlan, error) {
	return s.Plans.Get(ctx, id)
}

func (s *GormStore) CreatePlan(ctx context.Context, plan *Models.DailyPlan) error {
	return s.Plans.Create(ctx, plan)
}

func (s *GormStore) UpdatePlan(ctx context.Context, id uint, patch *Models.DailyPlan, fields ...string) (*Models.DailyPlan, error) {
	return s.Plans.Update(ctx, id, patch, fields...)
}

func (s *GormStore) FindTasks(ctx context.Context, q Query) ([]Models.Task, error) {
	return s.Tasks.Find(ctx, q)
}
