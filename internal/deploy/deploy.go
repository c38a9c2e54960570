package deploy

import (
	"context"

	"github.com/bedasa/dataport/sdk"
)

// Context carries everything a publisher needs to ship one deployment's
// payload. Files holds absolute paths: the produced data files, or just the
// archive when the deployment asked for a zip.
type Context struct {
	Logger     sdk.Logger
	Profile    *sdk.Profile
	Deployment sdk.Deployment
	// ContentFolder is the run's content folder on disk
	ContentFolder string
	// Files are the absolute paths to publish
	Files []string
}

// Publisher ships produced export files to one deployment target type
type Publisher interface {
	// Type returns the deployment target type this publisher serves
	Type() sdk.DeploymentType
	// Publish ships the context's files to the deployment target
	Publish(ctx context.Context, dc *Context) error
}
