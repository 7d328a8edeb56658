// Package dashboard serves the occurrence explorer page and its JSON API.
//
// Each browser session owns one result slot in a session.Store. A fetch
// replaces the slot wholesale; any outcome other than ok empties it.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mohammed-shakir/occurrence-explorer/internal/aggregate/geojsonagg"
	"github.com/mohammed-shakir/occurrence-explorer/internal/aggregate/yearly"
	"github.com/mohammed-shakir/occurrence-explorer/internal/cache/keys"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/middleware"
	"github.com/mohammed-shakir/occurrence-explorer/internal/core/model"
	"github.com/mohammed-shakir/occurrence-explorer/internal/events"
	"github.com/mohammed-shakir/occurrence-explorer/internal/geometry"
	"github.com/mohammed-shakir/occurrence-explorer/internal/mapper"
	"github.com/mohammed-shakir/occurrence-explorer/internal/pipeline"
	"github.com/mohammed-shakir/occurrence-explorer/internal/session"
)

const DefaultSpecies = "Smooth newt"

const geoJSONContentType = "application/geo+json"

// user-facing messages
const (
	msgNotFound  = "Species not found on NBN Atlas."
	msgNoRecords = "No occurrence records returned."
	msgFoundTVK  = "Found TVK: %s"
	msgError     = "Error fetching data: %v"
)

type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type Defaults struct {
	PageSize int
	YearFrom int
	HexRes   int
}

type Handler struct {
	log      *slog.Logger
	runner   Runner
	store    session.Store
	binner   mapper.Interface
	events   events.Sink
	defaults Defaults
	now      func() time.Time
}

func NewHandler(logger *slog.Logger, runner Runner, store session.Store, binner mapper.Interface, sink events.Sink, d Defaults) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if sink == nil {
		sink = events.Nop{}
	}
	return &Handler{
		log:      logger.With("component", "dashboard"),
		runner:   runner,
		store:    store,
		binner:   binner,
		events:   sink,
		defaults: d,
		now:      time.Now,
	}
}

type FetchResponse struct {
	Outcome     pipeline.Outcome `json:"outcome"`
	Message     string           `json:"message"`
	TVK         string           `json:"tvk,omitempty"`
	Fetched     int              `json:"fetched"`
	Geolocated  int              `json:"geolocated"`
	Dropped     int              `json:"dropped"`
	Center      *model.LatLon    `json:"center,omitempty"`
	Fingerprint string           `json:"fingerprint,omitempty"`
}

type errorResponse struct {
	Outcome pipeline.Outcome `json:"outcome"`
	Message string           `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) Fetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionID(ctx)

	req, err := ParseFetchRequest(r, h.defaults)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Outcome: pipeline.OutcomeInvalid, Message: err.Error()})
		return
	}
	fp := keys.Fetch(req.Name, string(req.Field), req.YearFrom, req.PageSize)

	res, err := h.runner.Run(ctx, req)
	outcome := pipeline.Classify(err)
	resp := FetchResponse{Outcome: outcome, Fingerprint: fp}
	if res != nil {
		resp.TVK = res.TVK
		resp.Fetched = res.Fetched
		resp.Dropped = res.Dropped
		resp.Geolocated = res.Geo.Len()
	}

	code := http.StatusOK
	switch outcome {
	case pipeline.OutcomeOK:
		resp.Message = fmt.Sprintf(msgFoundTVK, res.TVK)
		if c, ok := geometry.Center(res.Geo); ok {
			resp.Center = &c
		}
	case pipeline.OutcomeNotFound:
		code, resp.Message = http.StatusNotFound, msgNotFound
	case pipeline.OutcomeNoRecord:
		resp.Message = msgNoRecords
	case pipeline.OutcomeGeometry:
		code, resp.Message = http.StatusUnprocessableEntity, fmt.Sprintf(msgError, err)
	default:
		code, resp.Message = http.StatusBadGateway, fmt.Sprintf(msgError, err)
	}

	if outcome == pipeline.OutcomeOK {
		snap := &session.Snapshot{
			Species:   req.Name,
			Field:     req.Field,
			TVK:       res.TVK,
			YearFrom:  req.YearFrom,
			PageSize:  req.PageSize,
			Fetched:   res.Fetched,
			Dropped:   res.Dropped,
			FetchedAt: h.now().UTC(),
			Geo:       res.Geo,
		}
		if err := h.store.Put(ctx, sid, snap); err != nil {
			h.log.ErrorContext(ctx, "store results", "err", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Outcome: outcome, Message: "could not store results"})
			return
		}
	} else {
		if err := h.store.Clear(ctx, sid); err != nil {
			h.log.WarnContext(ctx, "clear results", "err", err)
		}
		if outcome != pipeline.OutcomeNotFound && outcome != pipeline.OutcomeNoRecord {
			h.log.WarnContext(ctx, "fetch failed", "species", req.Name, "outcome", outcome, "err", err)
		}
	}

	var took time.Duration
	if res != nil {
		took = res.Duration
	}
	h.events.Publish(events.FetchEvent{
		Session:     sid,
		Species:     req.Name,
		Field:       string(req.Field),
		TVK:         resp.TVK,
		Fingerprint: fp,
		Outcome:     string(outcome),
		Fetched:     resp.Fetched,
		Geolocated:  resp.Geolocated,
		DurationMS:  took.Milliseconds(),
		TS:          h.now().UTC(),
	})

	writeJSON(w, code, resp)
}

// snapshot loads the session slot and writes 404 when it is empty.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*session.Snapshot, bool) {
	snap, err := h.store.Get(r.Context(), middleware.SessionID(r.Context()))
	if errors.Is(err, session.ErrEmpty) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "no results in this session"})
		return nil, false
	}
	if err != nil {
		h.log.ErrorContext(r.Context(), "load results", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "could not load results"})
		return nil, false
	}
	return snap, true
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	body, err := geojsonagg.Encode(snap.Geo)
	if err != nil {
		h.log.ErrorContext(r.Context(), "encode results", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeCached(w, r, geoJSONContentType, body)
}

// writeCached honours If-None-Match against the body's ETag.
func writeCached(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	etag := keys.ETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type Summary struct {
	Species    string          `json:"species"`
	Field      model.NameField `json:"field"`
	TVK        string          `json:"tvk"`
	YearFrom   *int            `json:"year_from,omitempty"`
	PageSize   int             `json:"page_size"`
	Fetched    int             `json:"fetched"`
	Geolocated int             `json:"geolocated"`
	Dropped    int             `json:"dropped"`
	Center     *model.LatLon   `json:"center,omitempty"`
	BBox       []float64       `json:"bbox,omitempty"`
	FetchedAt  time.Time       `json:"fetched_at"`
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	s := Summary{
		Species:    snap.Species,
		Field:      snap.Field,
		TVK:        snap.TVK,
		YearFrom:   snap.YearFrom,
		PageSize:   snap.PageSize,
		Fetched:    snap.Fetched,
		Geolocated: snap.Geo.Len(),
		Dropped:    snap.Dropped,
		FetchedAt:  snap.FetchedAt,
	}
	if c, ok := geometry.Center(snap.Geo); ok {
		s.Center = &c
		b := geometry.Bounds(snap.Geo)
		s.BBox = []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) Yearly(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Species string         `json:"species"`
		Field   string         `json:"field"`
		Years   []yearly.Count `json:"years"`
	}{
		Species: snap.Species,
		Field:   yearly.DefaultDateField,
		Years:   yearly.Counts(snap.Geo, yearly.DefaultDateField),
	})
}

func (h *Handler) Hexbins(w http.ResponseWriter, r *http.Request) {
	res := h.defaults.HexRes
	if raw := r.URL.Query().Get("res"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 15 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Outcome: pipeline.OutcomeInvalid, Message: "res must be an integer in [0,15]"})
			return
		}
		res = n
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	body, err := h.hexbinBody(snap, res)
	if err != nil {
		h.log.ErrorContext(r.Context(), "hexbins", "res", res, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeCached(w, r, geoJSONContentType, body)
}

func (h *Handler) hexbinBody(snap *session.Snapshot, res int) ([]byte, error) {
	counts, err := h.binner.CellCounts(snap.Geo, res)
	if err != nil {
		return nil, err
	}
	feats, err := h.binner.CellFeatures(counts)
	if err != nil {
		return nil, err
	}
	return geojsonagg.EncodeFeatures(feats)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context(), middleware.SessionID(r.Context())); err != nil {
		h.log.ErrorContext(r.Context(), "clear results", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
