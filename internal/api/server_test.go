package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbrzx/dw-simulator/internal/config"
	"github.com/fbrzx/dw-simulator/internal/generate"
	"github.com/fbrzx/dw-simulator/internal/registry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T) (*gin.Engine, *registry.Registry, string) {
	t.Helper()
	reg, err := registry.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	outputRoot := t.TempDir()
	engine := generate.NewEngine(&config.Config{OutputRoot: outputRoot, BatchSize: 50})
	runner := generate.NewRunner(engine, reg)
	return NewServer(runner, reg).Router(), reg, outputRoot
}

func shopSchemaJSON(outputRoot string) string {
	return fmt.Sprintf(`{
		"schema": {
			"name": "shop",
			"tables": [
				{
					"name": "customers",
					"rows": 20,
					"columns": [
						{"name": "customer_id", "type": "integer", "unique": true, "required": true},
						{"name": "email", "type": "string", "max_length": 64, "generator": "internet.email"}
					]
				}
			]
		},
		"seed": 42,
		"output_root": %q
	}`, outputRoot)
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestValidateSchemaOK(t *testing.T) {
	router, _, _ := testServer(t)

	w := doRequest(router, http.MethodPost, "/schemas/validate", `{
		"name": "shop",
		"tables": [
			{"name": "customers", "rows": 10, "columns": [
				{"name": "customer_id", "type": "integer", "unique": true, "required": true}
			]}
		]
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "shop", resp["experiment"])
	assert.Equal(t, float64(1), resp["tables"])
}

func TestValidateSchemaReturnsAllViolations(t *testing.T) {
	router, _, _ := testServer(t)

	w := doRequest(router, http.MethodPost, "/schemas/validate", `{
		"name": "select",
		"tables": [
			{"name": "t", "rows": 0, "columns": [
				{"name": "c", "type": "decimal"}
			]}
		]
	}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp struct {
		Violations []string `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, len(resp.Violations), 3)
}

func TestValidateSchemaRejectsMalformedBody(t *testing.T) {
	router, _, _ := testServer(t)
	w := doRequest(router, http.MethodPost, "/schemas/validate", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateExperiment(t *testing.T) {
	router, reg, outputRoot := testServer(t)

	w := doRequest(router, http.MethodPost, "/experiments/shop/generate", shopSchemaJSON(outputRoot))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		RunID  string `json:"run_id"`
		Result struct {
			Seed   int64 `json:"seed"`
			Tables []struct {
				Name string `json:"name"`
				Rows int    `json:"rows"`
			} `json:"tables"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, int64(42), resp.Result.Seed)
	require.Len(t, resp.Result.Tables, 1)
	assert.Equal(t, 20, resp.Result.Tables[0].Rows)

	run, err := reg.Get(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, registry.StatusCompleted, run.Status)
}

func TestGenerateExperimentNameMismatch(t *testing.T) {
	router, _, outputRoot := testServer(t)
	w := doRequest(router, http.MethodPost, "/experiments/other/generate", shopSchemaJSON(outputRoot))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateExperimentConflict(t *testing.T) {
	router, reg, outputRoot := testServer(t)

	// Another process holds the run slot.
	active, err := reg.Start(context.Background(), "shop", 7)
	require.NoError(t, err)

	w := doRequest(router, http.MethodPost, "/experiments/shop/generate", shopSchemaJSON(outputRoot))
	require.Equal(t, http.StatusConflict, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, active.ID, resp["run_id"])
}

func TestGenerateExperimentInvalidSchema(t *testing.T) {
	router, _, _ := testServer(t)

	w := doRequest(router, http.MethodPost, "/experiments/shop/generate", `{
		"schema": {"name": "shop", "tables": [
			{"name": "t", "rows": -1, "columns": [{"name": "c", "type": "integer"}]}
		]}
	}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Violations []string `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Violations)
}

func TestGetRunNotFound(t *testing.T) {
	router, _, _ := testServer(t)
	w := doRequest(router, http.MethodGet, "/runs/no-such-run", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRunsForExperiment(t *testing.T) {
	router, reg, _ := testServer(t)

	run, err := reg.Start(context.Background(), "shop", 1)
	require.NoError(t, err)
	require.NoError(t, reg.Complete(context.Background(), run.ID, map[string]int{"customers": 20}))
	_, err = reg.Start(context.Background(), "warehouse", 2)
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/experiments/shop/runs", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Runs []registry.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, run.ID, resp.Runs[0].ID)
	assert.Equal(t, registry.StatusCompleted, resp.Runs[0].Status)
}
