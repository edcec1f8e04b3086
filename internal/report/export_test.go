package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []DailyRow {
	return []DailyRow{{
		Date:      "2025-03-01",
		Orders:    2,
		NetSales:  decimal.RequireFromString("190"),
		VAT:       decimal.RequireFromString("14"),
		Discounts: decimal.RequireFromString("10"),
		Shipping:  decimal.RequireFromString("50"),
		Gross:     decimal.RequireFromString("254"),
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{"2025-03-01", "2", "190.00", "14.00", "10.00", "50.00", "254.00"}, records[1])
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))

	var out []DailyRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Empty(t, out)
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "date", rows[0][0])
	assert.Equal(t, "2025-03-01", rows[1][0])
	assert.Equal(t, "254", rows[1][6])
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Write(&buf, "pdf", nil))

	_, ok := ContentType("pdf")
	assert.False(t, ok)
}
