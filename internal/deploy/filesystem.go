package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/log"
)

// FileSystemPublisher copies produced files into a target folder. Public
// filesystem deployments use it to populate the publicly served folder.
type FileSystemPublisher struct {
}

var _ Publisher = (*FileSystemPublisher)(nil)

// NewFileSystemPublisher returns a filesystem deployment publisher
func NewFileSystemPublisher() *FileSystemPublisher {
	return &FileSystemPublisher{}
}

// Type returns the deployment target type this publisher serves
func (p *FileSystemPublisher) Type() sdk.DeploymentType {
	return sdk.DeploymentFileSystem
}

// Publish copies the context's files into the deployment path
func (p *FileSystemPublisher) Publish(ctx context.Context, dc *Context) error {
	if dc.Deployment.Path == "" {
		return fmt.Errorf("filesystem deployment %q has no path", dc.Deployment.Name)
	}
	if err := os.MkdirAll(dc.Deployment.Path, 0700); err != nil {
		return fmt.Errorf("error creating deployment folder: %w", err)
	}
	for _, fn := range dc.Files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		dest := filepath.Join(dc.Deployment.Path, filepath.Base(fn))
		if err := copyFile(fn, dest); err != nil {
			return fmt.Errorf("error copying %s: %w", filepath.Base(fn), err)
		}
		log.Debug(dc.Logger, "deployed file", "file", dest, "deployment", dc.Deployment.Name)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
