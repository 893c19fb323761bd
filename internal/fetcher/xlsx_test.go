package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadXLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Parts":  {{"part_number", "brand"}, {"WR55X10025", "GE"}},
		"Prices": {{"sku", "price"}, {"WR55X10025", "45.99"}},
	}, "Parts", "Prices")

	t.Run("default first sheet", func(t *testing.T) {
		rows, err := ReadXLSX(path, XLSXOptions{})
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"part_number", "brand"}, {"WR55X10025", "GE"}}, rows)
	})

	t.Run("by name", func(t *testing.T) {
		rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Prices"})
		require.NoError(t, err)
		assert.Equal(t, "45.99", rows[1][1])
	})

	t.Run("by index", func(t *testing.T) {
		rows, err := ReadXLSX(path, XLSXOptions{SheetIndex: 1})
		require.NoError(t, err)
		assert.Equal(t, "sku", rows[0][0])
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := ReadXLSX(path, XLSXOptions{SheetName: "Nope"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `sheet "Nope" not found`)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 5})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	})
}

func TestReadXLSX_MissingFile(t *testing.T) {
	_, err := ReadXLSX("/nonexistent/file.xlsx", XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open file")
}
