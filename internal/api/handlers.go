package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yairfalse/muisti/types"
)

type storeMetricsRequest struct {
	Metrics types.ResourceMetrics `json:"metrics"`
	Events  []types.ResourceEvent `json:"events,omitempty"`
}

func (s *Server) handleStoreMetrics(w http.ResponseWriter, r *http.Request) {
	var req storeMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}

	entry, err := s.engine.StoreMetrics(r.Context(), req.Metrics, req.Events)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.respond(w, http.StatusCreated, entry)
}

func (s *Server) handleQueryMetrics(w http.ResponseWriter, r *http.Request) {
	filter, err := metricsFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	entries, err := s.engine.QueryMetrics(r.Context(), filter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (s *Server) handleStoreEvent(w http.ResponseWriter, r *http.Request) {
	var event types.ResourceEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}

	stored, err := s.engine.StoreEvent(r.Context(), event)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.respond(w, http.StatusCreated, stored)
}

func (s *Server) handleQueryEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := eventFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	events, err := s.engine.QueryEvents(r.Context(), filter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleStorePrediction(w http.ResponseWriter, r *http.Request) {
	var prediction types.ResourcePrediction
	if err := json.NewDecoder(r.Body).Decode(&prediction); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}

	stored, err := s.engine.StorePrediction(r.Context(), prediction)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.respond(w, http.StatusCreated, stored)
}

func (s *Server) handleQueryPredictions(w http.ResponseWriter, r *http.Request) {
	filter, err := predictionFilterFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	predictions, err := s.engine.QueryPredictions(r.Context(), filter)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"predictions": predictions, "count": len(predictions)})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.engine.KnownNodes(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
}

func (s *Server) handleNodeSummary(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")
	start, end, err := timeRangeFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	summary, err := s.engine.NodeSummary(r.Context(), node, start, end)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, summary)
}

func (s *Server) handleClusterOverview(w http.ResponseWriter, r *http.Request) {
	start, end, err := timeRangeFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	overview, err := s.engine.ClusterOverview(r.Context(), start, end)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, overview)
}

type addAnnotationRequest struct {
	SampleTime time.Time        `json:"sample_time"`
	Annotation types.Annotation `json:"annotation"`
}

func (s *Server) handleAddAnnotation(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")

	var req addAnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}

	if err := s.engine.AddAnnotation(r.Context(), node, req.SampleTime, req.Annotation); err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (s *Server) handleGetAnnotations(w http.ResponseWriter, r *http.Request) {
	node := chi.URLParam(r, "node")
	start, end, err := timeRangeFromQuery(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	annotations, err := s.engine.GetAnnotations(r.Context(), node, start, end)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{"annotations": annotations, "count": len(annotations)})
}

func metricsFilterFromQuery(r *http.Request) (types.MetricsFilter, error) {
	q := r.URL.Query()

	filter := types.MetricsFilter{
		NodeID:  q.Get("node"),
		NodeIDs: q["nodes"],
	}

	var err error
	if filter.StartTime, filter.EndTime, err = timeRangeFromQuery(r); err != nil {
		return filter, err
	}
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		return filter, fmt.Errorf("limit: %w", err)
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		return filter, fmt.Errorf("offset: %w", err)
	}

	if agg := q.Get("aggregation"); agg != "" {
		switch types.Aggregation(agg) {
		case types.AggregateAvg, types.AggregateMax, types.AggregateMin, types.AggregateSum:
			filter.Aggregation = types.Aggregation(agg)
		default:
			return filter, fmt.Errorf("unknown aggregation %q", agg)
		}
	}
	if iv := q.Get("interval"); iv != "" {
		d, err := time.ParseDuration(iv)
		if err != nil {
			return filter, fmt.Errorf("interval: %w", err)
		}
		filter.Interval = d
	}

	return filter, nil
}

func eventFilterFromQuery(r *http.Request) (types.EventFilter, error) {
	q := r.URL.Query()

	filter := types.EventFilter{
		NodeID:  q.Get("node"),
		NodeIDs: q["nodes"],
	}
	if raw := q.Get("min_severity"); raw != "" {
		sev := types.Severity(raw)
		if sev.Rank() < 0 {
			return filter, fmt.Errorf("unknown min_severity %q", raw)
		}
		filter.MinSeverity = sev
	}
	for _, et := range q["type"] {
		filter.Types = append(filter.Types, types.EventType(et))
	}

	var err error
	if filter.StartTime, filter.EndTime, err = timeRangeFromQuery(r); err != nil {
		return filter, err
	}
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		return filter, fmt.Errorf("limit: %w", err)
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		return filter, fmt.Errorf("offset: %w", err)
	}

	return filter, nil
}

func predictionFilterFromQuery(r *http.Request) (types.PredictionFilter, error) {
	q := r.URL.Query()

	filter := types.PredictionFilter{
		NodeID:    q.Get("node"),
		NodeIDs:   q["nodes"],
		Horizon:   types.Horizon(q.Get("horizon")),
		Algorithm: q.Get("algorithm"),
	}

	var err error
	if filter.StartTime, filter.EndTime, err = timeRangeFromQuery(r); err != nil {
		return filter, err
	}
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		return filter, fmt.Errorf("limit: %w", err)
	}

	return filter, nil
}

// timeRangeFromQuery reads optional RFC3339 start/end params. Missing
// params stay zero, which the filters treat as unbounded.
func timeRangeFromQuery(r *http.Request) (start, end time.Time, err error) {
	q := r.URL.Query()

	if raw := q.Get("start"); raw != "" {
		start, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, fmt.Errorf("start: %w", err)
		}
	}
	if raw := q.Get("end"); raw != "" {
		end, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return start, end, fmt.Errorf("end: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return start, end, errors.New("end is before start")
	}
	return start, end, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}
