package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/enrichment-gateway/internal/core/domain"
	"github.com/tjfontaine/enrichment-gateway/internal/core/ports"
)

// DefaultStepTimeout bounds a single remote call when none is configured.
const DefaultStepTimeout = 60 * time.Second

// HTTPStepExecutor performs step calls over HTTP.
type HTTPStepExecutor struct {
	client *resty.Client
}

// HTTPStepExecutorConfig configures an HTTPStepExecutor.
type HTTPStepExecutorConfig struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger

	// Transport overrides the base round tripper. It is wrapped for tracing.
	Transport http.RoundTripper
}

// NewHTTPStepExecutor creates a step executor. Retries are disabled: a failed
// step is terminal for its chain.
func NewHTTPStepExecutor(cfg HTTPStepExecutorConfig) *HTTPStepExecutor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	client := resty.NewWithClient(&http.Client{
		Transport: otelhttp.NewTransport(base),
	}).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetLogger(restyLogger{logger: logger})

	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &HTTPStepExecutor{client: client}
}

// Execute sends input to the step endpoint and returns the remote body
// verbatim. Only POST is supported; anything else fails before any network
// activity.
func (e *HTTPStepExecutor) Execute(ctx context.Context, index int, step domain.StepDescriptor, input *string) (domain.StepResult, error) {
	if !strings.EqualFold(step.Method(), http.MethodPost) {
		return domain.StepResult{}, &domain.UnsupportedMethodError{
			Endpoint: step.Endpoint(),
			Method:   step.Method(),
		}
	}

	req := e.client.R().
		SetContext(ctx).
		SetHeaders(step.Headers()).
		SetQueryParams(step.Parameters())

	if input != nil {
		if step.Header("Content-Type") == "" {
			req.SetHeader("Content-Type", step.InputMime())
		}
		req.SetBody(*input)
	}

	resp, err := req.Post(step.Endpoint())
	if err != nil {
		return domain.StepResult{}, &domain.TransportError{
			Endpoint:  step.Endpoint(),
			StepIndex: index,
			Err:       err,
		}
	}

	contentType := resp.Header().Get("Content-Type")
	if !resp.IsSuccess() {
		return domain.StepResult{}, domain.NewServiceFailure(index, step.Endpoint(), resp.StatusCode(), string(resp.Body()), contentType)
	}

	return domain.StepResult{
		Body:        string(resp.Body()),
		ContentType: contentType,
	}, nil
}

var _ ports.StepExecutor = (*HTTPStepExecutor)(nil)

// restyLogger routes resty diagnostics through slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "resty"))
}
