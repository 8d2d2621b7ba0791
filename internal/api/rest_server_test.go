package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/annel0/voxel-engine/internal/app"
	"github.com/annel0/voxel-engine/internal/auth"
	"github.com/annel0/voxel-engine/internal/rle"
	"github.com/annel0/voxel-engine/internal/world/block"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorld хранит одну колонку (0,0) в обычной сетке
type fakeWorld struct {
	grid      rle.Grid[block.BlockID]
	rebuilds  int
	persisted int
}

func newFakeWorld(t *testing.T) *fakeWorld {
	g := rle.NewArrayGrid[block.BlockID](4, rle.ScalarCodec[block.BlockID]{})
	require.NoError(t, g.SetRange(0, 0, 1, 3, block.StoneBlockID))
	return &fakeWorld{grid: g}
}

func (w *fakeWorld) Bounds() (int32, int32, bool) {
	lo, ok := w.grid.MinZ()
	hi, _ := w.grid.MaxZ()
	return lo, hi, ok
}

func (w *fakeWorld) ColumnRuns(x, y int) ([]app.RunView, bool) {
	c := w.grid.Lookup(x, y)
	if c == nil || c.IsEmpty() {
		return nil, false
	}
	var out []app.RunView
	for r := range c.Runs() {
		v := app.RunView{Boundary: r.Boundary, Present: r.Present}
		if r.Present {
			v.Block = r.Value.Name()
		}
		out = append(out, v)
	}
	return out, true
}

func (w *fakeWorld) Cell(x, y int, z int32) (block.BlockID, bool) { return w.grid.Get(x, y, z) }

func (w *fakeWorld) MeshStats() app.MeshStats { return app.MeshStats{Batches: 2, Ready: 1} }

func (w *fakeWorld) SetRange(x, y int, zMin, zMax int32, id block.BlockID) error {
	if id == block.AirBlockID {
		return w.grid.EraseRange(x, y, zMin, zMax)
	}
	return w.grid.SetRange(x, y, zMin, zMax, id)
}

func (w *fakeWorld) RebuildMeshes(context.Context) (int, error) {
	w.rebuilds++
	return 4, nil
}

func (w *fakeWorld) Persist() (int, error) {
	w.persisted++
	return 1, nil
}

func setupServer(t *testing.T) (*RestServer, *fakeWorld, *auth.TokenIssuer) {
	issuer, err := auth.NewTokenIssuer("", time.Hour)
	require.NoError(t, err)
	world := newFakeWorld(t)
	reg := prometheus.NewRegistry()
	rs := NewRestServer(Config{
		World:      world,
		Issuer:     issuer,
		Registerer: reg,
		Gatherer:   reg,
	})
	return rs, world, issuer
}

func do(t *testing.T, rs *RestServer, method, path, body, token string) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)

	var resp GenericResponse
	if strings.HasPrefix(path, "/api") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	rs, _, _ := setupServer(t)
	w, _ := do(t, rs, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestColumnEndpoints(t *testing.T) {
	rs, _, _ := setupServer(t)

	w, resp := do(t, rs, http.MethodGet, "/api/columns/0/0", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"block":"stone"`)

	w, resp = do(t, rs, http.MethodGet, "/api/columns/1/1", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)

	w, _ = do(t, rs, http.MethodGet, "/api/columns/a/0", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, rs, http.MethodGet, "/api/columns/0/0/2", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"present":true`)

	w, _ = do(t, rs, http.MethodGet, "/api/columns/0/0/4", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"present":false`)

	w, _ = do(t, rs, http.MethodGet, "/api/grid/bounds", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"min_z":0`)
	assert.Contains(t, w.Body.String(), `"max_z":3`)
}

func TestEditorEndpointsRequireToken(t *testing.T) {
	rs, world, issuer := setupServer(t)
	body := `{"z_min":5,"z_max":6,"block":"sand"}`

	w, _ := do(t, rs, http.MethodPut, "/api/columns/0/0/range", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, rs, http.MethodPut, "/api/columns/0/0/range", body, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	viewer, err := issuer.Issue("viewer", false)
	require.NoError(t, err)
	w, _ = do(t, rs, http.MethodPut, "/api/columns/0/0/range", body, viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	editor, err := issuer.Issue("alice", true)
	require.NoError(t, err)
	w, resp := do(t, rs, http.MethodPut, "/api/columns/0/0/range", body, editor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)

	id, ok := world.Cell(0, 0, 6)
	require.True(t, ok)
	assert.Equal(t, block.SandBlockID, id)

	w, _ = do(t, rs, http.MethodPost, "/api/mesh/rebuild", "", editor)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, world.rebuilds)

	w, _ = do(t, rs, http.MethodPost, "/api/storage/persist", "", editor)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, world.persisted)
}

func TestSetRangeValidation(t *testing.T) {
	rs, _, issuer := setupServer(t)
	editor, err := issuer.Issue("alice", true)
	require.NoError(t, err)

	cases := map[string]string{
		"unknown block":  `{"z_min":1,"z_max":2,"block":"lava"}`,
		"inverted range": `{"z_min":5,"z_max":2,"block":"stone"}`,
		"missing block":  `{"z_min":1,"z_max":2}`,
		"bad json":       `{"z_min":`,
		"z_min too high": `{"z_min":4294967286,"z_max":5,"block":"stone"}`,
		"z_max too low":  `{"z_min":0,"z_max":-4294967286,"block":"stone"}`,
		"z_min too low":  `{"z_min":-2147483649,"z_max":0,"block":"stone"}`,
		"z_max too high": `{"z_min":0,"z_max":2147483648,"block":"stone"}`,
		"span too long":  `{"z_min":-2147483648,"z_max":2147483647,"block":"stone"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w, resp := do(t, rs, http.MethodPut, "/api/columns/0/0/range", body, editor)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
		})
	}

	w, _ := do(t, rs, http.MethodPut, "/api/columns/9/9/range", `{"z_min":1,"z_max":2,"block":"stone"}`, editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetRangeRejectsWrappedZ(t *testing.T) {
	rs, world, issuer := setupServer(t)
	editor, err := issuer.Issue("alice", true)
	require.NoError(t, err)

	// после приведения к int32 эти значения попали бы в z=-5 и z=5
	w, _ := do(t, rs, http.MethodPut, "/api/columns/1/1/range", `{"z_min":4294967286,"z_max":5,"block":"stone"}`, editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, rs, http.MethodPut, "/api/columns/1/1/range", `{"z_min":0,"z_max":-4294967286,"block":"stone"}`, editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, z := range []int32{-5, 0, 5} {
		_, ok := world.Cell(1, 1, z)
		assert.False(t, ok, "z=%d", z)
	}
}

func TestSetRangeSpanLimit(t *testing.T) {
	rs, world, issuer := setupServer(t)
	editor, err := issuer.Issue("alice", true)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"z_min":0,"z_max":%d,"block":"stone"}`, MaxRangeSpan-1)
	w, _ := do(t, rs, http.MethodPut, "/api/columns/1/1/range", body, editor)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, ok := world.Cell(1, 1, int32(MaxRangeSpan-1))
	assert.True(t, ok)

	body = fmt.Sprintf(`{"z_min":0,"z_max":%d,"block":"stone"}`, MaxRangeSpan)
	w, _ = do(t, rs, http.MethodPut, "/api/columns/2/2/range", body, editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, ok = world.Cell(2, 2, 0)
	assert.False(t, ok)
}

func TestMetricsEndpoint(t *testing.T) {
	rs, _, _ := setupServer(t)
	do(t, rs, http.MethodGet, "/api/blocks", "", "")

	w, _ := do(t, rs, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "voxel_api")
}

func TestServerInfo(t *testing.T) {
	rs, _, _ := setupServer(t)
	w, resp := do(t, rs, http.MethodGet, "/api/server", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), `"goroutines"`)
	assert.Contains(t, w.Body.String(), `"uptime"`)
}
