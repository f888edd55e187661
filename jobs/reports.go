// Package jobs holds the sales aggregation behind the reports endpoints and
// the cron scheduler that snapshots it nightly.
package jobs

import (
	"context"
	"sort"
	"time"

	"restaurant-pos-api/models"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DayLayout = "2006-01-02"

// Summary aggregates payments and order activity over [From, To).
type Summary struct {
	From           time.Time      `json:"from"`
	To             time.Time      `json:"to"`
	Orders         int            `json:"orders"`
	Cancelled      int            `json:"cancelled"`
	Revenue        float64        `json:"revenue"`
	Tips           float64        `json:"tips"`
	AvgTicket      float64        `json:"avg_ticket"`
	MedianTicket   float64        `json:"median_ticket"`
	P90PrepSeconds float64        `json:"p90_prep_seconds"`
	ByMethod       map[string]int `json:"by_method"`
	ByStatus       map[string]int `json:"by_status"`
}

// ProductSale is one row of the product ranking.
type ProductSale struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// Summarize computes the sales summary for the half-open range [from, to).
func Summarize(ctx context.Context, db *gorm.DB, from, to time.Time) (*Summary, error) {
	db = db.WithContext(ctx)
	out := &Summary{From: from, To: to, ByMethod: map[string]int{}, ByStatus: map[string]int{}}

	var payments []models.Payment
	if err := db.Where("created_at >= ? AND created_at < ?", from, to).Find(&payments).Error; err != nil {
		return nil, errors.Wrap(err, "load payments")
	}
	revenue, tips := decimal.Zero, decimal.Zero
	tickets := make(stats.Float64Data, 0, len(payments))
	for _, p := range payments {
		revenue = revenue.Add(p.Total)
		tips = tips.Add(p.Tip)
		tickets = append(tickets, p.Total.InexactFloat64())
		out.ByMethod[string(p.Method)]++
	}
	out.Orders = len(payments)
	out.Revenue = revenue.Round(2).InexactFloat64()
	out.Tips = tips.Round(2).InexactFloat64()
	out.AvgTicket = round2(safeStat(stats.Mean, tickets))
	out.MedianTicket = round2(safeStat(stats.Median, tickets))

	var orders []models.Order
	if err := db.Select("id", "status").Where("created_at >= ? AND created_at < ?", from, to).Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	for _, o := range orders {
		out.ByStatus[string(o.Status)]++
		if o.Status == models.StatusCancelled {
			out.Cancelled++
		}
	}

	prep, err := prepDurations(db, from, to)
	if err != nil {
		return nil, err
	}
	if len(prep) > 0 {
		p90, err := stats.Percentile(prep, 90)
		if err == nil {
			out.P90PrepSeconds = round2(p90)
		}
	}
	return out, nil
}

// prepDurations returns, per order, the seconds between entering preparing
// and entering ready for the first time.
func prepDurations(db *gorm.DB, from, to time.Time) (stats.Float64Data, error) {
	var rows []models.OrderStatusHistory
	if err := db.
		Where("created_at >= ? AND created_at < ?", from, to).
		Where("to_status IN ?", []models.OrderStatus{models.StatusPreparing, models.StatusReady}).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load status history")
	}
	started := map[uint]time.Time{}
	done := map[uint]bool{}
	var out stats.Float64Data
	for _, r := range rows {
		switch r.ToStatus {
		case models.StatusPreparing:
			if _, ok := started[r.OrderID]; !ok {
				started[r.OrderID] = r.CreatedAt
			}
		case models.StatusReady:
			start, ok := started[r.OrderID]
			if !ok || done[r.OrderID] {
				continue
			}
			done[r.OrderID] = true
			out = append(out, r.CreatedAt.Sub(start).Seconds())
		}
	}
	return out, nil
}

// ProductSales ranks products by quantity sold on orders paid in [from, to).
func ProductSales(ctx context.Context, db *gorm.DB, from, to time.Time, limit int) ([]ProductSale, error) {
	var items []models.OrderItem
	paid := db.Model(&models.Payment{}).Select("order_id").Where("created_at >= ? AND created_at < ?", from, to)
	if err := db.WithContext(ctx).Where("order_id IN (?)", paid).Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "load order items")
	}

	byProduct := map[uint]*ProductSale{}
	revenue := map[uint]decimal.Decimal{}
	for _, it := range items {
		s, ok := byProduct[it.ProductID]
		if !ok {
			s = &ProductSale{ProductID: it.ProductID, Name: it.Name}
			byProduct[it.ProductID] = s
		}
		s.Quantity += it.Quantity
		revenue[it.ProductID] = revenue[it.ProductID].Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	out := make([]ProductSale, 0, len(byProduct))
	for id, s := range byProduct {
		s.Revenue = revenue[id].Round(2).InexactFloat64()
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SnapshotDay stores (or refreshes) the DailyReport for the calendar day
// containing day, in loc.
func SnapshotDay(ctx context.Context, db *gorm.DB, day time.Time, loc *time.Location) (*models.DailyReport, error) {
	from, to := DayBounds(day, loc)
	s, err := Summarize(ctx, db, from, to)
	if err != nil {
		return nil, err
	}
	report := models.DailyReport{Day: from.Format(DayLayout)}
	if err := db.WithContext(ctx).Where("day = ?", report.Day).FirstOrInit(&report).Error; err != nil {
		return nil, errors.Wrap(err, "load daily report")
	}
	report.Orders = s.Orders
	report.Revenue = s.Revenue
	report.Tips = s.Tips
	report.AvgTicket = s.AvgTicket
	report.MedianTicket = s.MedianTicket
	report.P90PrepSeconds = s.P90PrepSeconds
	if err := db.WithContext(ctx).Save(&report).Error; err != nil {
		return nil, errors.Wrap(err, "save daily report")
	}
	return &report, nil
}

// DayBounds returns midnight of day and of the following day, in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func safeStat(f func(stats.Float64Data) (float64, error), data stats.Float64Data) float64 {
	if len(data) == 0 {
		return 0
	}
	v, err := f(data)
	if err != nil {
		return 0
	}
	return v
}

func round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}
