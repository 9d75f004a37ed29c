package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/TobiSchelling/crisisboard/internal/corpus"
	"github.com/TobiSchelling/crisisboard/internal/pipeline"
)

var validate = validator.New()

// maxBodyBytes bounds request bodies; the largest is a block list.
const maxBodyBytes = 1 << 20

type timeRangeRequest struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

type valueRequest struct {
	Value string `json:"value" validate:"max=200"`
}

type blockListRequest struct {
	Words []string `json:"words" validate:"max=1000,dive,max=100"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) handleInitial(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Dataset().Messages)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Dataset().Locations())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) handleFiltered(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot().Filtered)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot().Heatmap)
}

func (s *Server) handleWordCloud(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot().WordCloud)
}

func (s *Server) handleSpecialWords(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	if !s.requireVariant(w, snap, pipeline.VariantCharts) {
		return
	}
	writeJSON(w, http.StatusOK, snap.SpecialWords)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	if !s.requireVariant(w, snap, pipeline.VariantCharts) {
		return
	}
	writeJSON(w, http.StatusOK, snap.Topics)
}

func (s *Server) handleWordGraph(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	if !s.requireVariant(w, snap, pipeline.VariantGraph) {
		return
	}
	writeJSON(w, http.StatusOK, snap.WordGraph)
}

func (s *Server) requireVariant(w http.ResponseWriter, snap *pipeline.Snapshot, want pipeline.Variant) bool {
	if snap.Variant == want {
		return true
	}
	writeJSON(w, http.StatusNotFound, errorResponse{
		Error: fmt.Sprintf("not available in the %s variant", snap.Variant),
	})
	return false
}

func (s *Server) handleSetTimeRange(w http.ResponseWriter, r *http.Request) {
	var req timeRangeRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	start, err := corpus.ParseTime(req.Start)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid start", Fields: map[string]string{"start": err.Error()}})
		return
	}
	end, err := corpus.ParseTime(req.End)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid end", Fields: map[string]string{"end": err.Error()}})
		return
	}

	writeJSON(w, http.StatusOK, s.session.SetTimeRange(&start, &end))
}

func (s *Server) handleSetString(set func(string) *pipeline.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req valueRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, set(req.Value))
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Reset())
}

func (s *Server) handleGetBlockList(w http.ResponseWriter, r *http.Request) {
	words := s.session.Snapshot().Filters.BlockList
	if words == nil {
		words = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"words": words})
}

func (s *Server) handleSetBlockList(w http.ResponseWriter, r *http.Request) {
	var req blockListRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	words := pipeline.CleanBlockList(req.Words)
	if s.blockList != nil {
		if err := s.blockList.SaveBlockList(words); err != nil {
			s.log.Error().Err(err).Msg("persisting block list")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "block list not saved"})
			return
		}
	}
	writeJSON(w, http.StatusOK, s.session.SetBlockList(words))
}

// decodeRequest decodes and validates a JSON body, writing a 400 on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}

	if err := validate.Struct(dst); err != nil {
		resp := errorResponse{Error: "validation failed", Fields: map[string]string{}}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				resp.Fields[fe.Field()] = fe.Tag()
			}
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

