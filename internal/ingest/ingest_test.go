package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRows(t *testing.T) {
	input := "NAME,EMAIL,POST CODE\nJane Doe,jane@example.com,01000\nIvan,ivan@example.com,02000\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Jane Doe", rows[0].Get("NAME"))
	assert.Equal(t, "jane@example.com", rows[0].Get("EMAIL"))
	assert.Equal(t, "02000", rows[1].Get("POST CODE"))
}

func TestReadRowsCaseInsensitiveLookup(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("Name,Email\nJane,j@e.com\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Jane", rows[0].Get("NAME"))
	assert.Equal(t, "Jane", rows[0].Get("name"))
	assert.Equal(t, "j@e.com", rows[0].Get(" EMAIL "))
}

func TestReadRowsMissingColumn(t *testing.T) {
	rows, err := ReadRows(strings.NewReader("NAME\nJane\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Empty(t, rows[0].Get("EMAIL"))
	assert.False(t, rows[0].Has("EMAIL"))
	assert.True(t, rows[0].Has("NAME"))
}

func TestReadRowsRaggedRows(t *testing.T) {
	// Rows shorter or longer than the header must not fail the parse.
	input := "NAME,EMAIL,CITY\nJane,jane@example.com\nIvan,ivan@example.com,Lviv,extra\n"

	rows, err := ReadRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Empty(t, rows[0].Get("CITY"))
	assert.Equal(t, "Lviv", rows[1].Get("CITY"))
}

func TestReadRowsEmpty(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ReadRows(strings.NewReader("NAME,EMAIL\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payouts.csv")
	require.NoError(t, os.WriteFile(path, []byte("NAME\nJane\n"), 0o644))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane", rows[0].Get("NAME"))
}

func TestReadFileNotFound(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
