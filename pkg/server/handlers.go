package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/hivesplit/pkg/buildinfo"
	"github.com/matzehuels/hivesplit/pkg/cache"
	hserrors "github.com/matzehuels/hivesplit/pkg/errors"
	"github.com/matzehuels/hivesplit/pkg/honeycomb"
	pkgio "github.com/matzehuels/hivesplit/pkg/io"
	"github.com/matzehuels/hivesplit/pkg/pipeline"
)

type errorBody struct {
	Error string        `json:"error"`
	Code  hserrors.Code `json:"code,omitempty"`
}

type ringsBody struct {
	String  int     `json:"string"`
	Density string  `json:"density"`
	Rings   [][]int `json:"rings"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	readouts, ok := s.decode(w, r)
	if !ok {
		return
	}
	if len(readouts) != 1 {
		s.writeError(w, hserrors.New(hserrors.ErrCodeInvalidInput, "expected exactly one readout, got %d", len(readouts)))
		return
	}
	out, err := s.opts.Runner.Run(r.Context(), readouts[0], pipeline.Options{Refresh: refresh(r)})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	readouts, ok := s.decode(w, r)
	if !ok {
		return
	}
	outs, err := s.opts.Runner.RunAll(r.Context(), readouts, pipeline.Options{
		Workers: s.opts.Workers,
		Refresh: refresh(r),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	if outs == nil {
		outs = []pkgio.Output{}
	}
	writeJSON(w, http.StatusOK, outs)
}

func (s *Server) handleTopologyString(w http.ResponseWriter, r *http.Request) {
	str, err := strconv.Atoi(chi.URLParam(r, "string"))
	if err != nil || str < 1 {
		s.writeError(w, hserrors.New(hserrors.ErrCodeInvalidInput, "invalid string number %q", chi.URLParam(r, "string")))
		return
	}
	topo := s.topology()
	if !topo.HasCenter(str) {
		s.writeError(w, hserrors.New(hserrors.ErrCodeNotFound, "string %d is not in the topology", str))
		return
	}
	body := ringsBody{String: str, Density: topo.Density(str).String()}
	for k := 0; k < topo.RingCount(str); k++ {
		ring := topo.Ring(str, k)
		if ring == nil {
			ring = []int{}
		}
		body.Rings = append(body.Rings, ring)
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTopologyGraph(w http.ResponseWriter, r *http.Request) {
	dot := honeycomb.ToDOT(s.topology())

	switch format := r.URL.Query().Get("format"); format {
	case "", "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(dot))
	case "svg":
		svg, err := s.renderSVG(r, dot)
		if err != nil {
			s.writeError(w, hserrors.Wrap(hserrors.ErrCodeInternal, err, "render topology"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	default:
		s.writeError(w, hserrors.New(hserrors.ErrCodeInvalidInput, "unsupported format %q (want dot or svg)", format))
	}
}

// renderSVG caches drawings by the hash of their DOT source.
func (s *Server) renderSVG(r *http.Request, dot string) ([]byte, error) {
	c, keyer := s.topologyCache()
	key := keyer.TopologyKey(cache.Hash([]byte(dot)), "svg")
	if data, hit, err := c.Get(r.Context(), key); err == nil && hit {
		return data, nil
	}
	svg, err := honeycomb.RenderSVG(r.Context(), dot)
	if err != nil {
		return nil, err
	}
	_ = c.Set(r.Context(), key, svg, cache.TopologyTTL)
	return svg, nil
}

func (s *Server) topology() *honeycomb.Topology {
	if s.opts.Topology == nil {
		return &honeycomb.Topology{}
	}
	return s.opts.Topology
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) ([]pkgio.Readout, bool) {
	if s.opts.Runner == nil {
		s.writeError(w, hserrors.New(hserrors.ErrCodeInvalidConfiguration, "no splitter configured"))
		return nil, false
	}
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBody)
	readouts, err := pkgio.ReadReadouts(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large", Code: hserrors.ErrCodeInvalidInput})
			return nil, false
		}
		s.writeError(w, err)
		return nil, false
	}
	return readouts, true
}

func refresh(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return v
}

func statusOf(err error) int {
	switch hserrors.GetCode(err) {
	case hserrors.ErrCodeInvalidInput, hserrors.ErrCodeInvalidIdentity, hserrors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case hserrors.ErrCodeNotFound, hserrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case hserrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.opts.Logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Error: hserrors.UserMessage(err), Code: hserrors.GetCode(err)})
}

// writeJSON encodes v before writing the header, so an unencodable value
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(errorBody{Error: "encode response: " + err.Error(), Code: hserrors.ErrCodeInternal})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
