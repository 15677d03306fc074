package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/querylens/querylens-engine/pkg/apperrors"
)

func TestRead_RejectsUnknownExtension(t *testing.T) {
	_, err := Read([]byte("whatever"), "data.parquet")
	require.ErrorIs(t, err, apperrors.ErrUnsupportedFile)
}

func TestReadCSV_TypeInference(t *testing.T) {
	csv := "name,age,joined,notes\n" +
		"alice,30,2024-01-15,likes cats\n" +
		"bob,25,2024-02-20,\n" +
		"carol,41,2024-03-05,vip\n"

	tbl, err := ReadCSV([]byte(csv))
	require.NoError(t, err)

	require.Equal(t, []string{"name", "age", "joined", "notes"}, tbl.ColumnNames())
	assert.Equal(t, 3, tbl.NumRows())

	cols := tbl.Columns()
	assert.Equal(t, ColumnText, cols[0].Type)
	assert.Equal(t, ColumnNumeric, cols[1].Type)
	assert.Equal(t, ColumnTemporal, cols[2].Type)
	assert.Equal(t, ColumnText, cols[3].Type)

	assert.Equal(t, 30.0, tbl.At(0, 1))
	assert.Nil(t, tbl.At(1, 3))
}

func TestReadCSV_DropsEmptyRowsAndColumns(t *testing.T) {
	csv := "a,b,\n1,x,\n,,\n2,y,\n"

	tbl, err := ReadCSV([]byte(csv))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
	assert.Equal(t, 2, tbl.NumRows())
}

func TestReadCSV_ThousandsSeparators(t *testing.T) {
	csv := "revenue\n\"1,200\"\n\"3,400\"\n"

	tbl, err := ReadCSV([]byte(csv))
	require.NoError(t, err)
	assert.Equal(t, []float64{1200, 3400}, tbl.NumericValues("revenue"))
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV([]byte(""))
	require.Error(t, err)
}

func TestReadXLSX_RoundTrip(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"city", "population"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"lyon", 513000}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"nice", 342000}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Read(buf.Bytes(), "cities.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "population"}, tbl.ColumnNames())
	assert.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []float64{513000, 342000}, tbl.NumericValues("population"))
}

func TestReadXLSX_SkipsTitleRows(t *testing.T) {
	f := excelize.NewFile()
	// A title row with mostly blank cells above the real header.
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Quarterly Report", "", ""}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"product", "units", "price"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"widget", 4, 9.5}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := ReadXLSX(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"product", "units", "price"}, tbl.ColumnNames())
	assert.Equal(t, 1, tbl.NumRows())
}
