package resources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/HendryAvila/kiln/internal/experiments"
	"github.com/HendryAvila/kiln/internal/glaze"
	"github.com/HendryAvila/kiln/internal/rules"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog []glaze.Record

func (c fakeCatalog) All() []glaze.Record { return c }

type fakeRules []rules.Rule

func (r fakeRules) All() []rules.Rule { return r }

type fakeStats struct {
	stats *experiments.Stats
	err   error
}

func (f fakeStats) Stats(int) (*experiments.Stats, error) { return f.stats, f.err }

func readReq(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func text(t *testing.T, contents []mcp.ResourceContents) mcp.TextResourceContents {
	t.Helper()
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	return tc
}

func TestHandleCatalog(t *testing.T) {
	h := NewHandler(fakeCatalog{{ID: "PC-59", Brand: "Potter's Choice", Name: "Deep Olive", Flow: 0.3}}, fakeRules(nil), nil)
	assert.Equal(t, CatalogURI, h.CatalogResource().URI)

	contents, err := h.HandleCatalog(context.Background(), readReq(CatalogURI))
	require.NoError(t, err)
	tc := text(t, contents)
	assert.Equal(t, "application/json", tc.MIMEType)

	var got []glaze.Record
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "PC-59", got[0].ID)
}

func TestHandleRules_EmptyIsArray(t *testing.T) {
	h := NewHandler(fakeCatalog(nil), fakeRules(nil), nil)
	contents, err := h.HandleRules(context.Background(), readReq(RulesURI))
	require.NoError(t, err)
	assert.Equal(t, "[]", text(t, contents).Text)
}

func TestHandleRules(t *testing.T) {
	h := NewHandler(fakeCatalog(nil), fakeRules{{BaseGlazeID: "PC-59", OverlayGlazeID: "PC-32", ClearCoat: glaze.ClearNone, CoverFactor: 0.6}}, nil)
	contents, err := h.HandleRules(context.Background(), readReq(RulesURI))
	require.NoError(t, err)
	assert.Contains(t, text(t, contents).Text, `"over_glaze_id": "PC-32"`)
}

func TestHandleStats(t *testing.T) {
	h := NewHandler(fakeCatalog(nil), fakeRules(nil), nil)
	contents, err := h.HandleStats(context.Background(), readReq(StatsURI))
	require.NoError(t, err)
	tc := text(t, contents)
	assert.Equal(t, "text/plain", tc.MIMEType)
	assert.Contains(t, tc.Text, "not available")

	h = NewHandler(fakeCatalog(nil), fakeRules(nil), fakeStats{err: errors.New("disk gone")})
	contents, err = h.HandleStats(context.Background(), readReq(StatsURI))
	require.NoError(t, err)
	assert.Equal(t, "Error: disk gone", text(t, contents).Text)

	h = NewHandler(fakeCatalog(nil), fakeRules(nil), fakeStats{stats: &experiments.Stats{TotalExperiments: 4, ByRunLabel: map[string]int{"High": 2}}})
	contents, err = h.HandleStats(context.Background(), readReq(StatsURI))
	require.NoError(t, err)
	assert.Contains(t, text(t, contents).Text, `"total_experiments": 4`)
}
