// Package gateway provides the public API for embedding the enrichment
// gateway. This is the stable API for external consumers.
package gateway

import (
	"github.com/tjfontaine/enrichment-gateway/internal/runtime"
)

// Gateway is the main entry point for running the enrichment gateway.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// New creates a new Gateway with the given options.
// Example:
//
//	gw, err := gateway.New(
//	    gateway.WithFileConfig("config.yaml"),
//	    gateway.WithSQLite("./data/pipelines.db"),
//	)
var New = runtime.New

// Configuration options
var (
	// Config sources
	WithFileConfig     = runtime.WithFileConfig
	WithConfigProvider = runtime.WithConfigProvider

	// Storage
	WithSQLite          = runtime.WithSQLite
	WithMemoryStorage   = runtime.WithMemoryStorage
	WithStorageProvider = runtime.WithStorageProvider

	// Pipeline collaborators
	WithStepExecutor = runtime.WithStepExecutor
	WithConverter    = runtime.WithConverter

	// Advanced options
	WithLogger = runtime.WithLogger
)
