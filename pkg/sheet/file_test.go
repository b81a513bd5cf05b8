package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "Tracking_online_Devices.xlsx")
	src := deviceTable()

	require.NoError(t, Write(path, src))
	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, src.Columns, got.Columns)
	assert.Equal(t, src.Rows, got.Rows)
}

func TestXLSXKeepsTrailingEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	src := New("Device Name", "Result")
	src.Append("pi-01", "")

	require.NoError(t, WriteXLSX(path, src))
	got, err := ReadXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"pi-01", ""}}, got.Rows)
}

func TestReadCSVHandlesBOMAndRaggedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Devices_2024.csv")
	content := "\xEF\xBB\xBFDevice Name,Status,Group\npi-01,online\npi-02,offline,lab,extra\n,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Device Name", "Status", "Group"}, got.Columns)
	assert.Equal(t, [][]string{{"pi-01", "online", ""}, {"pi-02", "offline", "lab"}}, got.Rows)
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.csv")
	src := New("Device Name", "Result")
	src.Append("pi-01", "1.0.0, with comma")

	require.NoError(t, Write(path, src))
	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, src.Rows, got.Rows)
}

func TestUnsupportedExtension(t *testing.T) {
	_, err := Read("devices.txt")
	assert.Error(t, err)
	assert.Error(t, Write(filepath.Join(t.TempDir(), "devices.txt"), New("a")))
}
