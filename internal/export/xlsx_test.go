package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/traitview/internal/render"
)

func lit(s string) string {
	return render.SentinelMarkers.Open + s + render.SentinelMarkers.Close
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	headers := []string{"#", "catalognumber", "fieldnotes"}
	rows := [][]string{
		{"1", "ABC-1", "found a " + lit("red") + " fox"},
		{"2", "ABC-2", ""},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, headers, rows, render.SentinelMarkers, Options{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"records"}, f.GetSheetList())
	got, err := f.GetRows("records")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, headers, got[0])
	assert.Equal(t, []string{"1", "ABC-1", "found a red fox"}, got[1])
	assert.Equal(t, []string{"2", "ABC-2"}, got[2])

	runs, err := f.GetCellRichText("records", "C2")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "red", runs[1].Text)
	require.NotNil(t, runs[1].Font)
	assert.True(t, runs[1].Font.Bold)
}

func TestSaveXLSX_CustomSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.xlsx")
	err := SaveXLSX(path, []string{"#"}, [][]string{{"9"}}, render.SentinelMarkers, Options{Sheet: "page 1"})
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("page 1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "9", v)
}

func TestBuild_NoRows(t *testing.T) {
	f, err := Build([]string{"#", "notes"}, nil, render.SentinelMarkers, Options{})
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("records")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"#", "notes"}}, rows)
}

func TestClampWidth(t *testing.T) {
	assert.Equal(t, minColumnWidth, clampWidth(1))
	assert.Equal(t, 12, clampWidth(10))
	assert.Equal(t, maxColumnWidth, clampWidth(500))
}
