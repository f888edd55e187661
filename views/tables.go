package views

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"restaurant-pos-api/client"
	"restaurant-pos-api/models"
	"restaurant-pos-api/search"
	"restaurant-pos-api/statemachine"
)

type TableAPI interface {
	TablesEnhanced(ctx context.Context, f client.TableFilter) ([]models.Table, error)
	SetTableStatus(ctx context.Context, id uint, status models.TableStatus, version int) (*models.Table, error)
}

// TableBoard drives the floor plan screen.
type TableBoard struct {
	api     TableAPI
	tables  *Store[models.Table]
	loader  Loader
	notices noticeLog
	now     func() time.Time
}

func NewTableBoard(api TableAPI) *TableBoard {
	return &TableBoard{
		api: api,
		tables: NewStore(
			func(t models.Table) uint { return t.ID },
			func(t models.Table) int { return t.Version },
		),
		now: time.Now,
	}
}

func (b *TableBoard) Load(ctx context.Context) error {
	return b.loader.Run(ctx, func(ctx context.Context) (func(), error) {
		since := b.tables.Mark()
		tables, err := b.api.TablesEnhanced(ctx, client.TableFilter{})
		if err != nil {
			return nil, errors.Wrap(err, "load tables")
		}
		return func() { b.tables.Replace(tables, since) }, nil
	})
}

func (b *TableBoard) Table(id uint) (models.Table, bool) {
	return b.tables.Get(id)
}

// Visible filters by area (0 for all), status set and a query matched
// against the table number and area name. Results are ordered by number.
func (b *TableBoard) Visible(areaID uint, statuses []models.TableStatus, q string) []models.Table {
	allowed := search.NewFacet(statuses...)
	out := search.Filter(b.tables.All(), func(t models.Table) bool {
		if areaID != 0 && (t.AreaID == nil || *t.AreaID != areaID) {
			return false
		}
		area := ""
		if t.Area != nil {
			area = t.Area.Name
		}
		return allowed.Allows(t.Status) && search.Matches(q, strconv.Itoa(t.Number), area)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Counts tallies every table by status, including statuses with none.
func (b *TableBoard) Counts() map[models.TableStatus]int {
	counts := make(map[models.TableStatus]int, len(models.TableStatuses))
	for _, s := range models.TableStatuses {
		counts[s] = 0
	}
	for _, t := range b.tables.All() {
		counts[t.Status]++
	}
	return counts
}

// SetStatus changes a table's status conditional on the stored version.
func (b *TableBoard) SetStatus(ctx context.Context, id uint, status models.TableStatus) error {
	if err := statemachine.ValidTableStatus(status); err != nil {
		return err
	}
	t, ok := b.tables.Get(id)
	if !ok {
		return errors.Errorf("table %d is not on the board", id)
	}
	updated, err := b.api.SetTableStatus(ctx, id, status, t.Version)
	if err != nil {
		zap.L().Warn("table status change failed", zap.Uint("table_id", id), zap.Error(err))
		b.notices.add(b.now(), id, err.Error())
		var current struct {
			Table models.Table `json:"table"`
		}
		if conflictBody(err, &current) && current.Table.ID == id {
			b.keepJoins(&current.Table, t)
			b.tables.Patch(current.Table)
		}
		return err
	}
	b.keepJoins(updated, t)
	b.tables.Patch(*updated)
	return nil
}

// keepJoins carries the area and active order over from the loaded copy,
// since single-table responses do not include them.
func (b *TableBoard) keepJoins(t *models.Table, prev models.Table) {
	if t.Area == nil {
		t.Area = prev.Area
	}
	if t.ActiveOrder == nil && t.ActiveOrderID != nil && prev.ActiveOrderID != nil && *t.ActiveOrderID == *prev.ActiveOrderID {
		t.ActiveOrder = prev.ActiveOrder
	}
}

func (b *TableBoard) Notices() []Notice {
	return b.notices.drain()
}
