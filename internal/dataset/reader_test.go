package dataset

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"bookingetl/internal/testutil"
	"bookingetl/pkg/errors"
)

func TestReadFileCSVWithQuotedNewlines(t *testing.T) {
	dir := t.TempDir()
	h := testutil.NewTestHelper(t)
	path := h.WriteFile(dir, "customers.csv", testutil.CSV(
		"customer_id,customer_name,customer_address",
		`1,"Lee, Ann","1 Main St`,
		`Springfield"`,
		`2,Bob,"2 ""Old"" Rd"`,
	))

	table, err := ReadFile(context.Background(), path, "customers")
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, "Lee, Ann", table.Rows[0][1])
	assert.Equal(t, "1 Main St\nSpringfield", table.Rows[0][2])
	assert.Equal(t, `2 "Old" Rd`, table.Rows[1][2])
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "bookings_2024-07-25.csv"), "bookings")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSourceNotFound, errors.GetErrorCode(err))
}

func TestReadFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := testutil.NewTestHelper(t).WriteFile(dir, "bookings.csv", "a,b\n1,2,3\n")

	_, err := ReadFile(context.Background(), path, "bookings")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSourceNotFound, errors.GetErrorCode(err))
}

func TestReadFileEmpty(t *testing.T) {
	dir := t.TempDir()
	path := testutil.NewTestHelper(t).WriteFile(dir, "bookings.csv", "")

	_, err := ReadFile(context.Background(), path, "bookings")
	assert.Error(t, err)
}

func TestReadFileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadFile(ctx, "ignored.csv", "bookings")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadFileXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings_2024-07-25.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"booking_id", "amount", "note"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, 100, "first"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{2, 12.5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ReadFile(context.Background(), path, "bookings")
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	col, _ := table.Column("amount")
	assert.Equal(t, TypeDouble, col.Type)
	assert.Nil(t, table.Rows[1][2])
}

func TestReadFileXLSXRowWiderThanHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings_2024-07-25.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"booking_id", "amount"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, 100, "stray"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := ReadFile(context.Background(), path, "bookings")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSourceNotFound, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "record 1 has 3 fields, expected 2")
}

func TestPrintSchemaAndShow(t *testing.T) {
	table, err := FromRecords("bookings", []string{"booking_id", "booking_type"}, [][]string{
		{"1", "hotel"}, {"2", "flight"}, {"3", ""},
	})
	require.NoError(t, err)

	var schema bytes.Buffer
	require.NoError(t, table.PrintSchema(&schema))
	assert.Equal(t, "root\n |-- booking_id: integer (nullable = false)\n |-- booking_type: string (nullable = true)\n", schema.String())

	var sample bytes.Buffer
	table.Show(&sample, 2)
	out := sample.String()
	assert.Contains(t, out, "booking_type")
	assert.Contains(t, out, "flight")
	assert.NotContains(t, out, "null")
	assert.True(t, strings.HasSuffix(out, "only showing top 2 rows of 3\n"))
}
