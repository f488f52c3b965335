package pipelining

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/server"
)

// TimingHeader carries the JSON execution report when the result body is
// returned as-is.
const TimingHeader = "X-Pipeline-Timing"

// HandleChain executes an ad hoc chain. The request body is a JSON array of
// serialized steps; the first step's body is the chain input.
func (h *Handler) HandleChain(w http.ResponseWriter, r *http.Request) {
	var steps []domain.SerializedStep
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&steps); err != nil {
		writeBadRequest(w, r, fmt.Sprintf("invalid chain: %v", err))
		return
	}
	if err := validate.Var(steps, fmt.Sprintf("required,min=1,max=%d", maxSteps)); err != nil {
		writeBadRequest(w, r, fmt.Sprintf("invalid chain: between 1 and %d steps required", maxSteps))
		return
	}

	h.run(w, r, domain.DecodeSteps(steps), steps[0].Body)
}

// HandleRunTemplate executes a stored pipeline. The request body is the chain
// input.
func (h *Handler) HandleRunTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	server.AddLogField(r.Context(), "pipeline_id", id)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeBadRequest(w, r, fmt.Sprintf("read body: %v", err))
		return
	}

	def, err := h.store.GetPipeline(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.run(w, r, def.Descriptors(), string(body))
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, steps []domain.StepDescriptor, body string) {
	ctx := r.Context()
	server.AddLogField(ctx, "steps", strconv.Itoa(len(steps)))

	res, err := h.runner().Run(ctx, steps, body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	server.AddLogField(ctx, "total_ms", strconv.FormatInt(res.Report.TotalMillis, 10))

	if stats, _ := strconv.ParseBool(r.URL.Query().Get("stats")); stats {
		writeJSON(w, http.StatusOK, res)
		return
	}

	timing, err := json.Marshal(res.Report)
	if err != nil {
		writeError(w, r, fmt.Errorf("encode execution report: %w", err))
		return
	}

	contentType := res.Result.ContentType
	if contentType == "" {
		contentType = domain.MimePlain
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set(TimingHeader, string(timing))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Result.Body)
}
