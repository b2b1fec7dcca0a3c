package csvtable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_HeaderAddressed(t *testing.T) {
	in := "Glaze_ID, name ,flow_0to1\nPC-59,Deep Olive,0.3\n,,\nPC-32,Albany Slip\n"
	tbl, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"glaze_id", "name", "flow_0to1"}, tbl.Header)
	require.Len(t, tbl.Rows, 2, "blank rows are skipped")

	assert.Equal(t, "PC-59", tbl.Get(0, "glaze_id"))
	assert.Equal(t, "Deep Olive", tbl.Get(0, "name"))
	assert.Equal(t, "", tbl.Get(1, "flow_0to1"), "short row reads as empty")
	assert.Equal(t, "", tbl.Get(0, "finish"), "missing column reads as empty")
	assert.Equal(t, "", tbl.Get(9, "name"), "out of range row reads as empty")
	assert.True(t, tbl.Has("name"))
	assert.False(t, tbl.Has("finish"))
}

func TestRead_StripsBOM(t *testing.T) {
	tbl, err := Read(strings.NewReader("\uFEFFglaze_id\nA\n"))
	require.NoError(t, err)
	assert.Equal(t, "A", tbl.Get(0, "glaze_id"))
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestEncode_RoundTripsQuoting(t *testing.T) {
	data, err := Encode([]string{"a", "notes"}, [][]string{{"1", "ran, a lot\n\"badly\""}})
	require.NoError(t, err)

	tbl, err := Read(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, "ran, a lot\n\"badly\"", tbl.Get(0, "notes"))
}
