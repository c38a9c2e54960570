package sdk

import (
	"context"

	"github.com/pinpt/go-common/v10/log"
)

// Logger is a logger interface
type Logger = log.Logger

// Feature is a capability flag an export provider can declare
type Feature uint32

const (
	// FeatureNone declares no capabilities
	FeatureNone Feature = 0
	// FeatureCanOmitCompletionMail means system profiles using the provider
	// do not force a completion notification
	FeatureCanOmitCompletionMail Feature = 1 << iota
	// FeatureCreatesInitialPublicDeployment means the provider expects a
	// public filesystem deployment folder to exist
	FeatureCreatesInitialPublicDeployment
	// FeatureCanProjectAttributeCombinations means the provider can export
	// attribute combinations as individual records
	FeatureCanProjectAttributeCombinations
)

// Supports returns true if the feature set contains f
func (s Feature) Supports(f Feature) bool {
	return s&f == f
}

// Provider is the interface that format specific export providers implement.
// The pipeline treats a provider as a black box that consumes converted
// records from the segmenter and writes serialized output to the data stream.
type Provider interface {
	// SystemName uniquely identifies the provider in the registry
	SystemName() string
	// EntityType returns the entity type the provider exports
	EntityType() EntityType
	// FileExtension returns the file extension for file based exports,
	// empty for non file based providers
	FileExtension() string
	// Features returns the provider's declared capability flags
	Features() Feature
	// ConfigSchema returns a prototype of the provider's typed configuration
	// or nil if the provider takes no configuration. The profile's stored
	// config payload is deserialized into a copy of the prototype before
	// Execute is called.
	ConfigSchema() interface{}
	// Validate is called before the run starts; a non nil error aborts the
	// run before any data is touched
	Validate() error
	// Execute is called once per segment to serialize the segment's records
	Execute(ctx context.Context, ec *ExecuteContext) error
	// OnExecuted is called after all segments complete (once, or once per
	// registered extra stream) for trailer or manifest content
	OnExecuted(ctx context.Context, ec *ExecuteContext) error
}

// Registry looks up export providers by system name
type Registry interface {
	// Get returns the provider registered under systemName
	Get(systemName string) (Provider, bool)
	// List returns the system names of all registered providers
	List() []string
}
