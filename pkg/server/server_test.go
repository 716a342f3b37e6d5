package server

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/hivesplit/pkg/causality"
	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
	pkgio "github.com/matzehuels/hivesplit/pkg/io"
	"github.com/matzehuels/hivesplit/pkg/observability"
	"github.com/matzehuels/hivesplit/pkg/omkey"
	"github.com/matzehuels/hivesplit/pkg/pipeline"
	"github.com/matzehuels/hivesplit/pkg/split"
)

const oneReadout = `{"id":"evt-1","hits":[
  {"string":1,"om":10,"time":0,"charge":1},
  {"string":2,"om":11,"time":100,"charge":1},
  {"string":1,"om":10,"time":9000,"charge":1}]}`

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	b := honeycomb.NewBuilder()
	require.NoError(t, b.MutualAdd(1, 2, 1))
	require.NoError(t, b.MutualAdd(1, 3, 2))
	require.NoError(t, b.SetDensity(2, honeycomb.Double))
	p, err := causality.New(causality.Config{
		Multiplicity:          2,
		TimeWindow:            2000,
		TimeConeMinus:         1000,
		TimeConePlus:          1000,
		SingleDenseRingLimits: []float64{-300, 300, -400, 400},
	})
	require.NoError(t, err)
	c, err := split.New(omkey.IceCube, b.Build(), p)
	require.NoError(t, err)

	logger := log.NewWithOptions(io.Discard, log.Options{})
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(c, "cfg", nil, nil, logger)
	}
	opts.Logger = logger
	srv := httptest.NewServer(New(opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, body := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","version":"dev"}`, string(body))
}

func TestSplit(t *testing.T) {
	srv := newTestServer(t, Options{})
	resp, body := do(t, http.MethodPost, srv.URL+"/v1/split", oneReadout)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out pkgio.Output
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "evt-1", out.ReadoutID)
	require.Equal(t, 1, out.Result.Len())
	assert.Equal(t, []int{0, 1}, out.Result.Subevents[0].Hits)
	assert.Len(t, out.Result.Noise, 1)
}

func TestSplitRejectsBadBodies(t *testing.T) {
	srv := newTestServer(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"two readouts", "[" + oneReadout + "," + oneReadout + "]"},
		{"no readout", ""},
		{"malformed", `{"id":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, srv.URL+"/v1/split", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var e errorBody
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, hserrors.ErrCodeInvalidInput, e.Code)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestSplitBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, Options{MaxBody: 16})
	resp, _ := do(t, http.MethodPost, srv.URL+"/v1/split", oneReadout)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestBatch(t *testing.T) {
	srv := newTestServer(t, Options{Workers: 2})
	second := strings.Replace(oneReadout, "evt-1", "evt-2", 1)
	resp, body := do(t, http.MethodPost, srv.URL+"/v1/split/batch", oneReadout+"\n"+second)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var outs []pkgio.Output
	require.NoError(t, json.Unmarshal(body, &outs))
	require.Len(t, outs, 2)
	assert.Equal(t, "evt-1", outs[0].ReadoutID)
	assert.Equal(t, "evt-2", outs[1].ReadoutID)
	assert.Equal(t, outs[0].RunID, outs[1].RunID)

	resp, body = do(t, http.MethodPost, srv.URL+"/v1/split/batch", "[]")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, "[]", string(body))
}

func TestTopologyString(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/topology/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"string":1,"density":"single","rings":[[1],[2],[3]]}`, string(body))

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/topology/2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"string":2,"density":"double","rings":[[2],[1]]}`, string(body))

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/topology/40", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/topology/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTopologyGraph(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/topology", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/vnd.graphviz", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), `"1" -- "2";`)
	assert.NotContains(t, string(body), `"1" -- "3";`)

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/topology?format=png", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	hooks := observability.NewPromHooks(reg)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	srv := newTestServer(t, Options{Gatherer: reg})
	do(t, http.MethodGet, srv.URL+"/healthz", "")
	do(t, http.MethodGet, srv.URL+"/v1/topology/1", "")

	resp, body := do(t, http.MethodGet, srv.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `hivesplit_http_requests_total{method="GET",route="/healthz",status="200"} 1`)
	assert.Contains(t, string(body), `route="/v1/topology/{string}"`)
}

func TestNoRunner(t *testing.T) {
	srv := httptest.NewServer(New(Options{Logger: log.NewWithOptions(io.Discard, log.Options{})}).Handler())
	defer srv.Close()

	resp, _ := do(t, http.MethodPost, srv.URL+"/v1/split", oneReadout)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/topology/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		code hserrors.Code
		want int
	}{
		{hserrors.ErrCodeInvalidInput, http.StatusBadRequest},
		{hserrors.ErrCodeInvalidIdentity, http.StatusBadRequest},
		{hserrors.ErrCodeNotFound, http.StatusNotFound},
		{hserrors.ErrCodeInvalidConfiguration, http.StatusInternalServerError},
		{hserrors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(hserrors.New(tt.code, "x")), tt.code)
	}
}

func TestWriteJSONUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"mean_time": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, hserrors.ErrCodeInternal, body.Code)
}
