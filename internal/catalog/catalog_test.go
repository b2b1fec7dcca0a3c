package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `glaze_id,brand,name,flow_0to1,opacity_0to1,finish
PC-59,Potter's Choice,Deep Olive Speckle,0.3,0.7,Gloss
PC-32,Potter's Choice,Albany Slip Brown,0.5,0.4,gloss
SW-101,Spectrum,Satin White,runny,,satin
PC-59,Duplicate,Should Be Ignored,0.9,0.9,matte
`

func TestRead_IndexesByID(t *testing.T) {
	c, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
	rec, err := c.Lookup("PC-32")
	require.NoError(t, err)
	assert.Equal(t, glaze.Record{
		ID: "PC-32", Brand: "Potter's Choice", Name: "Albany Slip Brown",
		Flow: 0.5, Opacity: 0.4, Finish: "gloss",
	}, rec)

	first, err := c.Lookup("PC-59")
	require.NoError(t, err)
	assert.Equal(t, "Deep Olive Speckle", first.Name, "first row wins on duplicate ids")
	assert.Equal(t, "gloss", first.Finish, "finish is lower-cased")
	assert.Equal(t, []string{"PC-59"}, c.Duplicates)
}

func TestRead_MalformedNumbersDefaultToZero(t *testing.T) {
	c, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	rec, err := c.Lookup("SW-101")
	require.NoError(t, err)
	assert.Zero(t, rec.Flow)
	assert.Zero(t, rec.Opacity)

	require.Len(t, c.Defaulted, 2)
	assert.Equal(t, Defaulted{GlazeID: "SW-101", Column: ColFlow, Raw: "runny"}, c.Defaulted[0])
	assert.Equal(t, Defaulted{GlazeID: "SW-101", Column: ColOpacity, Raw: ""}, c.Defaulted[1])
}

func TestRead_OutOfRangeNumbersClamped(t *testing.T) {
	c, err := Read(strings.NewReader("glaze_id,brand,name,flow_0to1,opacity_0to1,finish\n" +
		"X,b,n,2.5,-3,gloss\n" +
		"Y,b,n,1,0,gloss\n"))
	require.NoError(t, err)

	rec, err := c.Lookup("X")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.Flow)
	assert.Equal(t, 0.0, rec.Opacity)
	assert.Empty(t, c.Defaulted)
	assert.Equal(t, []Clamped{
		{GlazeID: "X", Column: ColFlow, Raw: "2.5", Value: 1},
		{GlazeID: "X", Column: ColOpacity, Raw: "-3", Value: 0},
	}, c.Clamped, "values on the bounds are not reported")
}

func TestLookup_UnknownIDFailsLoudly(t *testing.T) {
	c := New([]glaze.Record{{ID: "A"}})
	_, err := c.Lookup("B")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, c.Has("B"))
	assert.True(t, c.Has("A"))
}

func TestRead_StructuralErrors(t *testing.T) {
	_, err := Read(strings.NewReader("brand,name\nX,Y\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = Read(strings.NewReader("glaze_id,name\n,Nameless\n"))
	assert.Error(t, err)
}

func TestRead_NameFallsBackToID(t *testing.T) {
	c, err := Read(strings.NewReader("glaze_id\nAMACO-PC20\n"))
	require.NoError(t, err)
	rec, err := c.Lookup("AMACO-PC20")
	require.NoError(t, err)
	assert.Equal(t, "AMACO-PC20", rec.Name)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glaze_inventory.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestSearch(t *testing.T) {
	c, err := Read(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	got := c.Search("potter")
	require.Len(t, got, 2)
	assert.Equal(t, "PC-32", got[0].ID)
	assert.Equal(t, "PC-59", got[1].ID)

	assert.Len(t, c.Search(""), 3)
	assert.Empty(t, c.Search("celadon"))
}

func TestAll_ReturnsCopy(t *testing.T) {
	c := New([]glaze.Record{{ID: "A", Name: "a"}})
	all := c.All()
	all[0].Name = "mutated"

	rec, err := c.Lookup("A")
	require.NoError(t, err)
	assert.Equal(t, "a", rec.Name)
}
