package pipelining

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
	"github.com/tjfontaine/enrichment-gateway/internal/server"
)

// OwnerHeader identifies the caller creating a template. Authentication
// happens upstream; the value is recorded as given.
const OwnerHeader = "X-Owner-ID"

// TemplateRequest is the create and update payload.
type TemplateRequest struct {
	Label       string                  `json:"label" validate:"required,max=200"`
	Description string                  `json:"description,omitempty" validate:"max=4000"`
	Visibility  domain.Visibility       `json:"visibility,omitempty" validate:"omitempty,oneof=public private"`
	Persist     bool                    `json:"persist"`
	Steps       []domain.SerializedStep `json:"steps" validate:"required,min=1,max=64"`
}

// TemplateListResponse is returned by GET /templates.
type TemplateListResponse struct {
	Templates []*domain.PipelineDefinition `json:"templates"`
	Total     int                          `json:"total"`
}

func decodeTemplate(w http.ResponseWriter, r *http.Request) (*TemplateRequest, bool) {
	var req TemplateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeBadRequest(w, r, fmt.Sprintf("invalid template: %v", err))
		return nil, false
	}
	if err := validate.Struct(&req); err != nil {
		writeBadRequest(w, r, validationMessage("invalid template", err))
		return nil, false
	}
	return &req, true
}

// HandleCreateTemplate stores a new pipeline definition.
func (h *Handler) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTemplate(w, r)
	if !ok {
		return
	}

	def := &domain.PipelineDefinition{
		Label:       req.Label,
		Description: req.Description,
		OwnerID:     r.Header.Get(OwnerHeader),
		Visibility:  req.Visibility,
		Persist:     req.Persist,
		Steps:       domain.EncodeSteps(domain.DecodeSteps(req.Steps)),
	}
	if err := def.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.SavePipeline(r.Context(), def); err != nil {
		writeError(w, r, err)
		return
	}
	server.AddLogField(r.Context(), "pipeline_id", def.ID)

	h.logger.InfoContext(r.Context(), "pipeline template created",
		slog.String("pipeline_id", def.ID),
		slog.String("owner_id", def.OwnerID),
		slog.Bool("persist", def.Persist),
	)
	writeJSON(w, http.StatusCreated, def)
}

// HandleListTemplates lists templates, newest first, optionally filtered by
// owner and visibility.
func (h *Handler) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := ports.ListOptions{
		OwnerID:    q.Get("owner"),
		Visibility: domain.Visibility(q.Get("visibility")),
	}

	switch opts.Visibility {
	case "", domain.VisibilityPublic, domain.VisibilityPrivate:
	default:
		writeBadRequest(w, r, fmt.Sprintf("unknown visibility %q", opts.Visibility))
		return
	}

	for name, dst := range map[string]*int{"limit": &opts.Limit, "offset": &opts.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, r, fmt.Sprintf("invalid %s %q", name, v))
			return
		}
		*dst = n
	}

	defs, err := h.store.ListPipelines(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if defs == nil {
		defs = []*domain.PipelineDefinition{}
	}
	writeJSON(w, http.StatusOK, TemplateListResponse{Templates: defs, Total: len(defs)})
}

// HandleGetTemplate returns one template.
func (h *Handler) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	def, err := h.store.GetPipeline(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// HandleUpdateTemplate replaces a template's label, description, visibility,
// persist flag and steps. Owner and creation time are kept.
func (h *Handler) HandleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	server.AddLogField(r.Context(), "pipeline_id", id)

	req, ok := decodeTemplate(w, r)
	if !ok {
		return
	}

	existing, err := h.store.GetPipeline(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	def := &domain.PipelineDefinition{
		ID:          existing.ID,
		Label:       req.Label,
		Description: req.Description,
		OwnerID:     existing.OwnerID,
		Visibility:  req.Visibility,
		CreatedAt:   existing.CreatedAt,
		Persist:     req.Persist,
		Steps:       domain.EncodeSteps(domain.DecodeSteps(req.Steps)),
	}
	if err := def.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.store.UpdatePipeline(r.Context(), def); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// HandleDeleteTemplate removes a template. Chains already running with it
// are unaffected.
func (h *Handler) HandleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	server.AddLogField(r.Context(), "pipeline_id", id)

	if err := h.store.DeletePipeline(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
