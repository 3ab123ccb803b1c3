package wrqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mthydro/stagedata/stage"
)

func TestBasinRightsChunksObjectIDs(t *testing.T) {
	var blockWheres []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("returnIdsOnly") == "true" {
			if r.URL.Path == "/1/query" {
				// Five POD records force three blocks at size two.
				fmt.Fprint(w, `{"objectIds":[5,1,4,2,3]}`)
				return
			}
			fmt.Fprint(w, `{"objectIds":[]}`)
			return
		}

		blockWheres = append(blockWheres, q.Get("where"))
		var from, to int
		_, err := fmt.Sscanf(q.Get("where"), "BOCA_CD='41G' AND (OBJECTID BETWEEN %d AND %d)", &from, &to)
		require.NoError(t, err)

		features := make([]map[string]any, 0)
		for id := from; id <= to; id++ {
			features = append(features, map[string]any{
				"attributes": map[string]any{"OBJECTID": id, "BOCA_CD": "41G", "WR_NUMBER": fmt.Sprintf("41G %d", id)},
			})
		}
		payload, err := json.Marshal(map[string]any{"features": features})
		require.NoError(t, err)
		w.Write(payload)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL), WithBlockSize(2))
	rights, err := c.BasinRights(context.Background(), "41G")
	require.NoError(t, err)

	require.Len(t, blockWheres, 3)
	assert.Contains(t, blockWheres[0], "OBJECTID BETWEEN 1 AND 2")
	assert.Contains(t, blockWheres[2], "OBJECTID BETWEEN 5 AND 5")

	require.Len(t, rights.PODs, 5)
	assert.Equal(t, int64(1), rights.PODs[0].ObjectID)
	assert.Equal(t, "41G 1", rights.PODs[0].Attributes["WR_NUMBER"])
	assert.Empty(t, rights.POUs)
	assert.Empty(t, rights.Reservoirs)
}

func TestBasinRightsQueriesAllThreeLayers(t *testing.T) {
	paths := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("returnIdsOnly") == "true" {
			paths[r.URL.Path] = true
			fmt.Fprint(w, `{"objectIds":[7]}`)
			return
		}
		require.True(t, strings.HasPrefix(q.Get("where"), "BOCA_CD='76F'"))
		fmt.Fprint(w, `{"features":[{"attributes":{"OBJECTID":7}}]}`)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	rights, err := c.BasinRights(context.Background(), "76F")
	require.NoError(t, err)

	assert.True(t, paths["/1/query"])
	assert.True(t, paths["/2/query"])
	assert.True(t, paths["/3/query"])
	assert.Len(t, rights.PODs, 1)
	assert.Len(t, rights.POUs, 1)
	assert.Len(t, rights.Reservoirs, 1)
}

func TestBasinRightsEmptyBasin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"objectIds":null}`)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	rights, err := c.BasinRights(context.Background(), "00X")
	require.NoError(t, err)
	assert.Empty(t, rights.PODs)
	assert.Empty(t, rights.POUs)
	assert.Empty(t, rights.Reservoirs)
}

func TestBasinRightsUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	c.http.SetRetryCount(0)
	_, err := c.BasinRights(context.Background(), "41G")
	require.Error(t, err)

	var ue *stage.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
}
