package pipelining

import (
	"context"
	"errors"
	"net/http"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/server"
)

// FailedEndpointHeader names the step that failed when a remote failure is
// relayed to the client.
const FailedEndpointHeader = "X-Pipeline-Failed-Endpoint"

const errorTypeTimeout = "timeout"

type errorDetail struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Endpoint string `json:"endpoint,omitempty"`
	Status   int    `json:"status,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

// writeError renders err. A ServiceFailure is relayed as the remote service
// answered it; everything else becomes a JSON error object.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	server.AddError(r.Context(), err)

	var failure *domain.ServiceFailure
	if errors.As(err, &failure) {
		contentType := failure.ContentType
		if contentType == "" {
			contentType = domain.MimePlain
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set(FailedEndpointHeader, failure.Endpoint)
		w.WriteHeader(failure.StatusCode)
		_, _ = w.Write([]byte(failure.Body))
		return
	}

	detail := errorDetail{
		Type:    string(domain.KindOf(err)),
		Message: err.Error(),
		Status:  domain.HTTPStatus(err),
	}

	var transport *domain.TransportError
	var unsupported *domain.UnsupportedMethodError
	switch {
	case errors.As(err, &transport):
		detail.Endpoint = transport.Endpoint
	case errors.As(err, &unsupported):
		detail.Endpoint = unsupported.Endpoint
	}

	if errors.Is(err, context.DeadlineExceeded) {
		detail.Type = errorTypeTimeout
		detail.Status = http.StatusGatewayTimeout
	}

	writeJSON(w, detail.Status, errorResponse{Error: detail})
}

// writeBadRequest renders a client error that never reached the domain.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	server.AddLogField(r.Context(), "error", message)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorDetail{
		Type:    string(domain.ErrorKindInvalidRequest),
		Message: message,
		Status:  http.StatusBadRequest,
	}})
}
