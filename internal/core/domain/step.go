package domain

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

// Format parameters a step may carry to override its declared content types.
const (
	ParamInformat     = "informat"
	ParamInformatAlt  = "f"
	ParamOutformat    = "outformat"
	ParamOutformatAlt = "o"
)

// formatParams are stripped from steps running inside a round-trip chain.
var formatParams = []string{ParamInformat, ParamInformatAlt, ParamOutformat, ParamOutformatAlt}

// StepDescriptor describes one HTTP call in a chain.
// The zero value is not useful; build descriptors with NewStepDescriptor or
// decode them from a SerializedStep.
type StepDescriptor struct {
	endpoint   string
	method     string
	headers    map[string]string // keys canonicalized
	parameters map[string]string
	body       string
}

// NewStepDescriptor builds a descriptor. Header names are canonicalized so
// lookups are case-insensitive. The maps are copied.
func NewStepDescriptor(endpoint, method string, headers, parameters map[string]string) StepDescriptor {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[http.CanonicalHeaderKey(k)] = v
	}
	p := make(map[string]string, len(parameters))
	maps.Copy(p, parameters)

	if method == "" {
		method = http.MethodPost
	}

	return StepDescriptor{
		endpoint:   endpoint,
		method:     strings.ToUpper(method),
		headers:    h,
		parameters: p,
	}
}

// WithBody returns a copy of the descriptor carrying an initial input body.
func (s StepDescriptor) WithBody(body string) StepDescriptor {
	c := s.clone()
	c.body = body
	return c
}

func (s StepDescriptor) Endpoint() string { return s.endpoint }
func (s StepDescriptor) Method() string   { return s.method }
func (s StepDescriptor) Body() string     { return s.body }

// Headers returns a copy of the step headers.
func (s StepDescriptor) Headers() map[string]string {
	return maps.Clone(s.headers)
}

// Parameters returns a copy of the step query parameters.
func (s StepDescriptor) Parameters() map[string]string {
	return maps.Clone(s.parameters)
}

// Header returns the value of the named header, matched case-insensitively.
func (s StepDescriptor) Header(name string) string {
	return s.headers[http.CanonicalHeaderKey(name)]
}

// Parameter returns the value of the named query parameter.
func (s StepDescriptor) Parameter(name string) string {
	return s.parameters[name]
}

// InputMime is the declared content type of the body this step accepts.
// Format parameters win over the Content-Type header; turtle is assumed
// when nothing is declared.
func (s StepDescriptor) InputMime() string {
	if v := s.firstParam(ParamInformat, ParamInformatAlt); v != "" {
		return NormalizeMime(v)
	}
	if v := s.Header("Content-Type"); v != "" {
		return NormalizeMime(v)
	}
	return MimeTurtle
}

// OutputMime is the declared content type of the body this step produces.
func (s StepDescriptor) OutputMime() string {
	if v := s.firstParam(ParamOutformat, ParamOutformatAlt); v != "" {
		return NormalizeMime(v)
	}
	if v := s.Header("Accept"); v != "" {
		return NormalizeMime(v)
	}
	return MimeTurtle
}

func (s StepDescriptor) firstParam(names ...string) string {
	for _, n := range names {
		if v := s.parameters[n]; v != "" {
			return v
		}
	}
	return ""
}

// ForInterchange returns a new descriptor that talks the internal
// interchange serialization in both directions: Content-Type and Accept are
// forced to turtle and format override parameters are removed. The receiver
// is left untouched.
func (s StepDescriptor) ForInterchange() StepDescriptor {
	c := s.clone()
	c.headers["Content-Type"] = MimeSemantic
	c.headers["Accept"] = MimeSemantic
	for _, p := range formatParams {
		delete(c.parameters, p)
	}
	return c
}

// Validate checks the descriptor carries what is needed to perform the call.
func (s StepDescriptor) Validate() error {
	if s.endpoint == "" {
		return fmt.Errorf("%w: step endpoint is empty", ErrInvalidPipeline)
	}
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return fmt.Errorf("%w: step endpoint %q: %v", ErrInvalidPipeline, s.endpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: step endpoint %q is not an absolute http(s) URL", ErrInvalidPipeline, s.endpoint)
	}
	return nil
}

func (s StepDescriptor) clone() StepDescriptor {
	c := s
	c.headers = maps.Clone(s.headers)
	if c.headers == nil {
		c.headers = make(map[string]string)
	}
	c.parameters = maps.Clone(s.parameters)
	if c.parameters == nil {
		c.parameters = make(map[string]string)
	}
	return c
}

// SerializedStep is the wire and storage form of a StepDescriptor.
type SerializedStep struct {
	Method     string            `json:"method"`
	Endpoint   string            `json:"endpoint"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
}

// Descriptor converts the serialized form into an immutable descriptor.
func (s SerializedStep) Descriptor() StepDescriptor {
	return NewStepDescriptor(s.Endpoint, s.Method, s.Headers, s.Parameters).WithBody(s.Body)
}

// Serialize converts a descriptor back into its serialized form.
func (s StepDescriptor) Serialize() SerializedStep {
	return SerializedStep{
		Method:     s.method,
		Endpoint:   s.endpoint,
		Parameters: s.Parameters(),
		Headers:    s.Headers(),
		Body:       s.body,
	}
}

// DecodeSteps converts a serialized chain into descriptors.
func DecodeSteps(in []SerializedStep) []StepDescriptor {
	out := make([]StepDescriptor, len(in))
	for i, s := range in {
		out[i] = s.Descriptor()
	}
	return out
}

// EncodeSteps converts descriptors into their serialized form.
func EncodeSteps(in []StepDescriptor) []SerializedStep {
	out := make([]SerializedStep, len(in))
	for i, s := range in {
		out[i] = s.Serialize()
	}
	return out
}
