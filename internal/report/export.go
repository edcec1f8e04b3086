// Package report renders financial rows as CSV, JSON or XLSX.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

type DailyRow struct {
	Date      string          `json:"date"`
	Orders    int             `json:"orders"`
	NetSales  decimal.Decimal `json:"net_sales"`
	VAT       decimal.Decimal `json:"vat"`
	Discounts decimal.Decimal `json:"discounts"`
	Shipping  decimal.Decimal `json:"shipping"`
	Gross     decimal.Decimal `json:"gross"`
}

var header = []string{"date", "orders", "net_sales", "vat", "discounts", "shipping", "gross"}

func (r DailyRow) record() []string {
	return []string{
		r.Date,
		strconv.Itoa(r.Orders),
		r.NetSales.StringFixed(2),
		r.VAT.StringFixed(2),
		r.Discounts.StringFixed(2),
		r.Shipping.StringFixed(2),
		r.Gross.StringFixed(2),
	}
}

func ContentType(format string) (string, bool) {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8", true
	case FormatJSON:
		return "application/json", true
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", true
	}
	return "", false
}

func Write(w io.Writer, format string, rows []DailyRow) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func WriteCSV(w io.Writer, rows []DailyRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, rows []DailyRow) error {
	if rows == nil {
		rows = []DailyRow{}
	}
	return json.NewEncoder(w).Encode(rows)
}

func WriteXLSX(w io.Writer, rows []DailyRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for col, h := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for i, r := range rows {
		values := []any{
			r.Date,
			r.Orders,
			r.NetSales.InexactFloat64(),
			r.VAT.InexactFloat64(),
			r.Discounts.InexactFloat64(),
			r.Shipping.InexactFloat64(),
			r.Gross.InexactFloat64(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
