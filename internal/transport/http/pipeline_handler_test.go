package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edupulse/internal/config"
	"edupulse/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := services.NewPipelineService(config.Default(), nil, nil)
	handler := NewPipelineHandler(svc, nil)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func writeSourceFiles(t *testing.T) (activity, userLog, codes string) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}
	activity = write("activity.csv",
		"User Full Name *Anonymized,Component,Action,Date\n"+
			"1,Quiz,viewed,2024-01-05 10:00:00\n")
	userLog = write("userlog.csv",
		"User Full Name *Anonymized,Date\n1,2024-01-05 09:00:00\n")
	codes = write("codes.csv", "Component,Code\nQuiz,QZ\n")
	return activity, userLog, codes
}

func TestPipelineEndpoints(t *testing.T) {
	server := newTestServer(t)
	activity, userLog, codes := writeSourceFiles(t)

	resp := postJSON(t, server.URL+"/load", map[string]string{
		"activity_log":    activity,
		"user_log":        userLog,
		"component_codes": codes,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stage struct {
		Success bool                    `json:"success"`
		Status  services.PipelineStatus `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stage))
	assert.True(t, stage.Success)
	assert.Equal(t, services.StageStatusCompleted, stage.Status.Stages[0].Status)

	for _, path := range []string{"/clean", "/merge", "/reshape", "/aggregate"} {
		resp := postJSON(t, server.URL+path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "POST %s", path)
	}

	outPath := filepath.Join(t.TempDir(), "report.xlsx")
	resp = postJSON(t, server.URL+"/export", map[string]string{"path": outPath})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.FileExists(t, outPath)
}

func TestLoadValidation(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing fields", map[string]string{"activity_log": "only-one.csv"}},
		{"empty body", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/load", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var errResp struct {
				Success bool `json:"success"`
				Error   struct {
					ErrorCode string `json:"error_code"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
			assert.False(t, errResp.Success)
			assert.Equal(t, "VALIDATION_FAILED", errResp.Error.ErrorCode)
		})
	}
}

func TestStageSequencingOverHTTP(t *testing.T) {
	server := newTestServer(t)

	// merge before any load must be rejected as a precondition failure
	resp := postJSON(t, server.URL+"/merge", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp struct {
		Error struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "VALIDATION", errResp.Error.ErrorCode)
}

func TestStatusEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status services.PipelineStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.NotEmpty(t, status.RunID)
	assert.Len(t, status.Stages, 6)
	for _, stage := range status.Stages {
		assert.Equal(t, services.StageStatusPending, stage.Status)
	}
}

func TestTableEndpoint(t *testing.T) {
	server := newTestServer(t)

	t.Run("unknown stage", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/tables/bogus")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("stage without output", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/tables/merge")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("stage with output", func(t *testing.T) {
		server := newTestServer(t)
		activity, userLog, codes := writeSourceFiles(t)
		postJSON(t, fmt.Sprintf("%s/load", server.URL), map[string]string{
			"activity_log":    activity,
			"user_log":        userLog,
			"component_codes": codes,
		})
		postJSON(t, server.URL+"/clean", nil)

		resp, err := http.Get(server.URL + "/tables/clean")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var table struct {
			Columns []string `json:"columns"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&table))
		assert.Contains(t, table.Columns, "User_ID")
	})
}

func TestResetEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/reset", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
