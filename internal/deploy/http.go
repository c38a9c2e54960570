package deploy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/log"
)

// HTTPPublisher uploads produced files to an HTTP endpoint as multipart form
// posts, one request per file
type HTTPPublisher struct {
	client *http.Client
}

var _ Publisher = (*HTTPPublisher)(nil)

// NewHTTPPublisher returns an HTTP deployment publisher
func NewHTTPPublisher() *HTTPPublisher {
	return &HTTPPublisher{
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Type returns the deployment target type this publisher serves
func (p *HTTPPublisher) Type() sdk.DeploymentType {
	return sdk.DeploymentHTTP
}

// Publish posts each file to the deployment URL
func (p *HTTPPublisher) Publish(ctx context.Context, dc *Context) error {
	if dc.Deployment.URL == "" {
		return fmt.Errorf("http deployment %q has no url", dc.Deployment.Name)
	}
	for _, fn := range dc.Files {
		if err := p.upload(ctx, dc, fn); err != nil {
			return err
		}
		log.Debug(dc.Logger, "uploaded file", "file", filepath.Base(fn), "url", dc.Deployment.URL)
	}
	return nil
}

func (p *HTTPPublisher) upload(ctx context.Context, dc *Context, fn string) error {
	f, err := os.Open(fn)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", filepath.Base(fn), err)
	}
	defer f.Close()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(fn))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dc.Deployment.URL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if dc.Deployment.Username != "" {
		req.SetBasicAuth(dc.Deployment.Username, dc.Deployment.Password)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("error uploading %s: %w", filepath.Base(fn), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("error uploading %s: status %d", filepath.Base(fn), resp.StatusCode)
	}
	return nil
}
