// Package pipeline executes chains of HTTP enrichment steps.
//
// A chain is an ordered list of step descriptors. The body returned by step N
// is posted to step N+1; the body and content type returned by the last step
// are the result of the chain. Every step is timed under its endpoint.
//
// # Round-trip mode
//
// When a chain has at least two steps, its first step declares markup input
// and its last step declares markup output, the runner converts the initial
// markup to the semantic interchange form before the first step and merges
// the final result back into markup after the last one:
//
//	html --toSemantic--> turtle --step 0..N-1--> turtle --fromSemantic--> html
//
// Inside a round-trip chain every step talks turtle in both directions and
// its format override parameters (informat, f, outformat, o) are dropped. If
// the forward conversion fails the chain runs unconverted. A failure of the
// backward conversion fails the chain.
//
// # Failures
//
// Steps are never retried. The first failing step ends the chain with a
// *domain.ServiceFailure (remote non-2xx), *domain.TransportError (remote
// unreachable) or *domain.UnsupportedMethodError (non-POST step).
package pipeline
