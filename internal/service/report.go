package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/report"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	dateLayout       = "2006-01-02"
	topProductsLimit = 10
	revenueWindow    = 30 * 24 * time.Hour
)

type ReportService struct {
	Repo *repo.GormRepo
	Now  Clock
}

// ParseRange reads an inclusive [from, to] pair of dates. Empty values
// default to the last 30 days.
func (s *ReportService) ParseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	today := s.Now.now().Truncate(24 * time.Hour)
	to := today
	from := today.AddDate(0, 0, -29)

	var err error
	if toStr != "" {
		if to, err = time.Parse(dateLayout, toStr); err != nil {
			return time.Time{}, time.Time{}, invalidf("to must be YYYY-MM-DD")
		}
	}
	if fromStr != "" {
		if from, err = time.Parse(dateLayout, fromStr); err != nil {
			return time.Time{}, time.Time{}, invalidf("from must be YYYY-MM-DD")
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, invalidf("from must not be after to")
	}
	return from, to, nil
}

func netSales(o models.Order) decimal.Decimal {
	return o.Subtotal.Sub(o.DiscountAmount)
}

// dailyRows buckets orders by the UTC day they were paid.
func dailyRows(orders []models.Order) []report.DailyRow {
	byDay := map[string]*report.DailyRow{}
	for _, o := range orders {
		if o.PaidAt == nil {
			continue
		}
		day := o.PaidAt.UTC().Format(dateLayout)
		row, ok := byDay[day]
		if !ok {
			row = &report.DailyRow{Date: day}
			byDay[day] = row
		}
		row.Orders++
		row.NetSales = row.NetSales.Add(netSales(o))
		row.VAT = row.VAT.Add(o.VATAmount)
		row.Discounts = row.Discounts.Add(o.DiscountAmount)
		row.Shipping = row.Shipping.Add(o.ShippingCost)
		row.Gross = row.Gross.Add(o.Total)
	}

	rows := make([]report.DailyRow, 0, len(byDay))
	for _, r := range byDay {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows
}

func (s *ReportService) paidBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	return s.Repo.PaidOrdersBetween(ctx, from, to.AddDate(0, 0, 1))
}

func (s *ReportService) Summary(ctx context.Context, from, to time.Time) (*transport.FinancialSummary, error) {
	orders, err := s.paidBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	sum := &transport.FinancialSummary{
		From:       from.Format(dateLayout),
		To:         to.Format(dateLayout),
		OrderCount: len(orders),
		Daily:      dailyRows(orders),
	}
	for _, o := range orders {
		sum.GrossTotal = sum.GrossTotal.Add(o.Total)
		sum.NetSales = sum.NetSales.Add(netSales(o))
		sum.VAT = sum.VAT.Add(o.VATAmount)
		sum.Discounts = sum.Discounts.Add(o.DiscountAmount)
		sum.Shipping = sum.Shipping.Add(o.ShippingCost)
	}
	return sum, nil
}

func (s *ReportService) Export(ctx context.Context, w io.Writer, from, to time.Time, format string) error {
	if _, ok := report.ContentType(format); !ok {
		return invalidf("format must be csv, json or xlsx")
	}
	orders, err := s.paidBetween(ctx, from, to)
	if err != nil {
		return err
	}
	return report.Write(w, format, dailyRows(orders))
}

func (s *ReportService) Dashboard(ctx context.Context) (*transport.Dashboard, error) {
	counts, err := s.Repo.CountOrdersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.Repo.CountPaymentsByStatus(ctx, models.PaymentPending)
	if err != nil {
		return nil, err
	}
	low, err := s.Repo.LowStockProducts(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.Repo.TopProducts(ctx, topProductsLimit)
	if err != nil {
		return nil, err
	}
	now := s.Now.now()
	recent, err := s.Repo.PaidOrdersBetween(ctx, now.Add(-revenueWindow), now.Add(time.Second))
	if err != nil {
		return nil, err
	}

	d := &transport.Dashboard{
		OrdersByStatus:  make(map[string]int64, len(counts)),
		PendingPayments: pending,
		LowStock:        low,
		TopProducts:     make([]transport.TopProduct, 0, len(top)),
		Orders30Days:    len(recent),
	}
	for _, c := range counts {
		d.OrdersByStatus[c.Status] = c.Count
	}
	for _, t := range top {
		d.TopProducts = append(d.TopProducts, transport.TopProduct{
			ProductID: t.ProductID,
			SKU:       t.SKU,
			Name:      t.ProductName,
			Quantity:  t.Quantity,
		})
	}
	for _, o := range recent {
		d.Revenue30Days = d.Revenue30Days.Add(o.Total)
	}
	return d, nil
}

// VAT reports output VAT per calendar month of year.
func (s *ReportService) VAT(ctx context.Context, year int) (*transport.VATReport, error) {
	if year < 2000 || year > 9999 {
		return nil, invalidf("year %d is out of range", year)
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	orders, err := s.Repo.PaidOrdersBetween(ctx, start, start.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}

	rep := &transport.VATReport{Year: year, Months: make([]transport.VATMonth, 12)}
	for m := range rep.Months {
		rep.Months[m].Month = fmt.Sprintf("%04d-%02d", year, m+1)
	}
	for _, o := range orders {
		if o.PaidAt == nil {
			continue
		}
		m := &rep.Months[o.PaidAt.UTC().Month()-1]
		net := netSales(o)
		m.Orders++
		m.NetSales = m.NetSales.Add(net)
		m.VAT = m.VAT.Add(o.VATAmount)
		m.Gross = m.Gross.Add(net.Add(o.VATAmount))
	}
	for _, m := range rep.Months {
		rep.NetSales = rep.NetSales.Add(m.NetSales)
		rep.VAT = rep.VAT.Add(m.VAT)
		rep.Gross = rep.Gross.Add(m.Gross)
	}
	return rep, nil
}
