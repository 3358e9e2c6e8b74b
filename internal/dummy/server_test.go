package dummy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func post(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/compute/sum", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestComputeSum(t *testing.T) {
	ts := httptest.NewServer(Router(ServerConfig{}))
	defer ts.Close()

	resp := post(t, ts, "[1,2,3]")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Sum   float64 `json:"sum"`
		Count int     `json:"count"`
	}
	require.NoError(t, jsonDecode(resp, &out))
	assert.Equal(t, 6.0, out.Sum)
	assert.Equal(t, 3, out.Count)
	assert.NotEmpty(t, resp.Header.Get("Content-Length"))
}

func TestComputeSumEmptyArray(t *testing.T) {
	ts := httptest.NewServer(Router(ServerConfig{}))
	defer ts.Close()

	resp := post(t, ts, "[]")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestComputeSumRejectsGarbage(t *testing.T) {
	ts := httptest.NewServer(Router(ServerConfig{}))
	defer ts.Close()

	resp := post(t, ts, `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInjectedFailures(t *testing.T) {
	ts := httptest.NewServer(Router(ServerConfig{FailureRate: 1.0}))
	defer ts.Close()

	resp := post(t, ts, "[1]")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
