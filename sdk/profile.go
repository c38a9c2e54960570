package sdk

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DeploymentType identifies a deployment target transport. The numeric order
// is the fixed execution order of the fan out stage.
type DeploymentType int

const (
	// DeploymentFileSystem copies the produced files to a local folder
	DeploymentFileSystem DeploymentType = iota
	// DeploymentEmail sends the produced files as mail attachments
	DeploymentEmail
	// DeploymentHTTP uploads the produced files via HTTP POST
	DeploymentHTTP
	// DeploymentFTP uploads the produced files via FTP
	DeploymentFTP
	// DeploymentS3 uploads the produced files to an S3 bucket
	DeploymentS3
)

func (t DeploymentType) String() string {
	switch t {
	case DeploymentFileSystem:
		return "filesystem"
	case DeploymentEmail:
		return "email"
	case DeploymentHTTP:
		return "http"
	case DeploymentFTP:
		return "ftp"
	case DeploymentS3:
		return "s3"
	}
	return fmt.Sprintf("deployment(%d)", int(t))
}

// Deployment is a configured deployment target of a profile
type Deployment struct {
	Name      string         `json:"name"`
	Type      DeploymentType `json:"type"`
	Enabled   bool           `json:"enabled"`
	CreateZip bool           `json:"create_zip"`
	// IsPublic marks a filesystem deployment whose folder is publicly served
	IsPublic bool `json:"is_public,omitempty"`

	// target specific settings
	Path           string   `json:"path,omitempty"`
	URL            string   `json:"url,omitempty"`
	Username       string   `json:"username,omitempty"`
	Password       string   `json:"password,omitempty"`
	EmailAddresses []string `json:"email_addresses,omitempty"`
	EmailSubject   string   `json:"email_subject,omitempty"`
	Bucket         string   `json:"bucket,omitempty"`
	Region         string   `json:"region,omitempty"`
}

// Profile is the stored configuration of an export profile
type Profile struct {
	ID                 int          `json:"id"`
	Name               string       `json:"name"`
	FolderName         string       `json:"folder_name"`
	SeoName            string       `json:"seo_name"`
	ProviderSystemName string       `json:"provider_system_name"`
	ProviderConfig     string       `json:"provider_config,omitempty"`
	Enabled            bool         `json:"enabled"`
	IsSystemProfile    bool         `json:"is_system_profile"`
	PerStore           bool         `json:"per_store"`
	BatchSize          int          `json:"batch_size"`
	Limit              int          `json:"limit"`
	Offset             int          `json:"offset"`
	MaxFailures        int          `json:"max_failures"`
	FileNamePattern    string       `json:"file_name_pattern"`
	CreateZipArchive   bool         `json:"create_zip_archive"`
	Cleanup            bool         `json:"cleanup"`
	EmailAccount       string       `json:"email_account,omitempty"`
	CompletedEmails    []string     `json:"completed_emails,omitempty"`
	Deployments        []Deployment `json:"deployments,omitempty"`
	// ResultInfo is the serialized result of the last run, written back by
	// the pipeline through the profile store
	ResultInfo string `json:"result_info,omitempty"`
}

// DefaultFileNamePattern is used when a profile declares none
const DefaultFileNamePattern = "%Profile.SeoName%-%File.Index%"

var invalidFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9-_.]+`)

// ResolveFileNamePattern expands the profile's file name pattern for one
// produced file. Supported tokens: %Profile.Id%, %Profile.FolderName%,
// %Profile.SeoName%, %Store.Id%, %Store.SeoName%, %File.Index%,
// %Random.Number%, %Timestamp%. The result is sanitized and capped to
// maxFileNameLength.
func (p *Profile) ResolveFileNamePattern(store *Store, fileIndex int, maxFileNameLength int) string {
	pattern := p.FileNamePattern
	if pattern == "" {
		pattern = DefaultFileNamePattern
	}
	r := strings.NewReplacer(
		"%Profile.Id%", strconv.Itoa(p.ID),
		"%Profile.FolderName%", p.FolderName,
		"%Profile.SeoName%", p.SeoName,
		"%Store.Id%", strconv.Itoa(store.ID),
		"%Store.SeoName%", store.SeoName,
		"%File.Index%", strconv.Itoa(fileIndex),
		"%Random.Number%", strconv.Itoa(rand.Intn(1000000)),
		"%Timestamp%", time.Now().Format("20060102-150405"),
	)
	name := r.Replace(pattern)
	name = invalidFileNameChars.ReplaceAllString(name, "-")
	if maxFileNameLength > 0 && len(name) > maxFileNameLength {
		name = name[:maxFileNameLength]
	}
	return name
}

// HasEnabledDeployments returns true if at least one deployment target is enabled
func (p *Profile) HasEnabledDeployments() bool {
	for _, d := range p.Deployments {
		if d.Enabled {
			return true
		}
	}
	return false
}

// WantsZip returns true if the profile itself or any enabled deployment
// requires the produced files to be bundled into an archive
func (p *Profile) WantsZip() bool {
	if p.CreateZipArchive {
		return true
	}
	for _, d := range p.Deployments {
		if d.Enabled && d.CreateZip {
			return true
		}
	}
	return false
}
