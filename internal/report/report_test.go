package report_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqimap/aqimap/internal/aqi"
	"github.com/aqimap/aqimap/internal/geo"
	"github.com/aqimap/aqimap/internal/report"
)

var taipeiStation = geo.Point{Lat: 25.0478, Lon: 121.5170}

func testBuilder(t *testing.T) (*report.Builder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outputs", "aqi_report.csv")
	b := report.NewBuilder(report.Config{
		OutputPath: path,
		Reference:  taipeiStation,
		Logger:     zerolog.Nop(),
	})
	return b, path
}

func readCSV(t *testing.T, path string) (hasBOM bool, rows [][]string) {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	hasBOM = bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if hasBOM {
		raw = raw[3:]
	}

	rows, err = csv.NewReader(bytes.NewReader(raw)).ReadAll()
	require.NoError(t, err)
	return hasBOM, rows
}

func columnIndex(t *testing.T, header []string, name string) int {
	t.Helper()
	for i, col := range header {
		if col == name {
			return i
		}
	}
	t.Fatalf("column %q not found in header %v", name, header)
	return -1
}

func TestBuild_SortedByDistanceNullsLast(t *testing.T) {
	b, path := testBuilder(t)

	records := []aqi.StationRecord{
		{SiteName: "前金", County: "高雄市", AQI: "120", Latitude: "22.6273", Longitude: "120.3014", PublishTime: "2026/03/01 12:00:00"},
		{SiteName: "斷線站", County: "南投縣", AQI: "55", PublishTime: "2026/03/01 12:00:00"},
		{SiteName: "中山", County: "臺北市", AQI: "42", Latitude: "25.0330", Longitude: "121.5654", PublishTime: "2026/03/01 12:00:00"},
	}

	got, summary, err := b.Build(records)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	hasBOM, rows := readCSV(t, path)
	assert.True(t, hasBOM, "report must carry a UTF-8 BOM")
	require.Len(t, rows, 4) // header + 3 rows

	header := rows[0]
	nameIdx := columnIndex(t, header, "sitename")
	distIdx := columnIndex(t, header, "distance_km")

	assert.Equal(t, "中山", rows[1][nameIdx])
	assert.Equal(t, "前金", rows[2][nameIdx])
	assert.Equal(t, "斷線站", rows[3][nameIdx]) // no coordinates: sorted last
	assert.Empty(t, rows[3][distIdx])

	d1, err := strconv.ParseFloat(rows[1][distIdx], 64)
	require.NoError(t, err)
	d2, err := strconv.ParseFloat(rows[2][distIdx], 64)
	require.NoError(t, err)
	assert.Less(t, d1, d2)

	require.NotNil(t, summary)
	assert.Equal(t, "中山", summary.SiteName)
	assert.Equal(t, d1, summary.DistanceKM)
}

func TestBuild_ColumnsAreInputDriven(t *testing.T) {
	b, path := testBuilder(t)

	// No record carries pollutant, status, or publishtime.
	records := []aqi.StationRecord{
		{SiteName: "中山", County: "臺北市", AQI: "42", Latitude: "25.0330", Longitude: "121.5654"},
	}

	_, _, err := b.Build(records)
	require.NoError(t, err)

	_, rows := readCSV(t, path)
	header := rows[0]

	assert.Equal(t, []string{"sitename", "county", "aqi", "latitude", "longitude", "distance_km"}, header)
}

func TestBuild_DistanceRoundedToTwoDecimals(t *testing.T) {
	b, path := testBuilder(t)

	records := []aqi.StationRecord{
		{SiteName: "中山", Latitude: "25.0330", Longitude: "121.5654"},
	}

	_, summary, err := b.Build(records)
	require.NoError(t, err)
	require.NotNil(t, summary)

	_, rows := readCSV(t, path)
	distIdx := columnIndex(t, rows[0], "distance_km")
	assert.Regexp(t, `^\d+\.\d{2}$`, rows[1][distIdx])
}

func TestBuild_NoComputableDistances(t *testing.T) {
	b, path := testBuilder(t)

	records := []aqi.StationRecord{
		{SiteName: "斷線站", AQI: "55"},
	}

	_, summary, err := b.Build(records)
	require.NoError(t, err)
	assert.Nil(t, summary)

	_, rows := readCSV(t, path)
	require.Len(t, rows, 2)
}

func TestBuild_EmptyInput(t *testing.T) {
	b, path := testBuilder(t)

	_, summary, err := b.Build(nil)
	require.NoError(t, err)
	assert.Nil(t, summary)

	_, rows := readCSV(t, path)
	require.Len(t, rows, 1) // header only
	assert.Equal(t, []string{"distance_km"}, rows[0])
}

func TestBuild_OutputDirectoryUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	b := report.NewBuilder(report.Config{
		// Parent path is a regular file, so directory creation fails.
		OutputPath: filepath.Join(blocked, "aqi_report.csv"),
		Reference:  taipeiStation,
		Logger:     zerolog.Nop(),
	})

	_, _, err := b.Build([]aqi.StationRecord{{SiteName: "中山", Latitude: "25.0", Longitude: "121.5"}})
	require.Error(t, err)
}

func TestBuild_PreservesNonASCIINames(t *testing.T) {
	b, path := testBuilder(t)

	records := []aqi.StationRecord{
		{SiteName: "竹山", County: "南投縣", AQI: "65", Latitude: "23.7566", Longitude: "120.6773"},
	}

	_, _, err := b.Build(records)
	require.NoError(t, err)

	_, rows := readCSV(t, path)
	assert.Equal(t, "竹山", rows[1][columnIndex(t, rows[0], "sitename")])
	assert.Equal(t, "南投縣", rows[1][columnIndex(t, rows[0], "county")])
}
