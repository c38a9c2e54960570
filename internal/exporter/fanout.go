package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bedasa/dataport/internal/archive"
	"github.com/bedasa/dataport/internal/deploy"
	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/fileutil"
	"github.com/pinpt/go-common/v10/log"
)

var allFiles = regexp.MustCompile(".*")

// fanOut runs the post export stages: archive, deployments in type order and
// the completion notification. Deployment failures are isolated per target
// and never fail the run.
func (e *Exporter) fanOut(rc *runContext) {
	p := rc.request.Profile
	zipped := false
	if p.WantsZip() {
		rc.setProgressMessage("creating archive")
		if err := e.createArchive(rc); err != nil {
			rc.result.LastError = fmt.Sprintf("error creating archive: %v", err)
			log.Error(rc.logger, "error creating archive", "err", err)
		} else {
			zipped = true
		}
	}

	if p.HasEnabledDeployments() {
		rc.setProgressMessage("deploying files")
		e.runDeployments(rc, zipped)
	}

	if e.notifier != nil && e.notifier.ShouldNotify(p, rc.request.Provider.Features()) {
		if err := e.notifier.Notify(rc.ctx, rc.logger, p, rc.result); err != nil {
			log.Error(rc.logger, "error sending completion notification", "err", err)
		}
	}

	// a cleanup profile leaves no content behind after a clean run; the
	// archive survives as the downloadable artifact
	if p.Cleanup && rc.result.Succeeded() {
		fileLock.Lock()
		if err := os.RemoveAll(rc.folderContent); err != nil {
			log.Warn(rc.logger, "error cleaning content folder", "err", err)
		} else {
			os.MkdirAll(rc.folderContent, 0700)
		}
		fileLock.Unlock()
	}
}

func (e *Exporter) createArchive(rc *runContext) error {
	fileLock.RLock()
	defer fileLock.RUnlock()
	count, err := archive.ZipDir(e.zipPath(rc), rc.folderContent, allFiles)
	if err != nil {
		return err
	}
	log.Info(rc.logger, "created archive", "file", filepath.Base(e.zipPath(rc)), "count", count)
	return nil
}

// runDeployments ships the produced files to every enabled deployment target
// in ascending type order
func (e *Exporter) runDeployments(rc *runContext, zipped bool) {
	p := rc.request.Profile
	deployments := make([]sdk.Deployment, 0, len(p.Deployments))
	for _, d := range p.Deployments {
		if d.Enabled {
			deployments = append(deployments, d)
		}
	}
	sort.SliceStable(deployments, func(i, j int) bool { return deployments[i].Type < deployments[j].Type })

	contentFiles := make([]string, 0, len(rc.result.Files))
	seen := make(map[string]struct{}, len(rc.result.Files))
	for _, f := range rc.result.Files {
		if _, ok := seen[f.FileName]; ok {
			continue
		}
		seen[f.FileName] = struct{}{}
		fn := filepath.Join(rc.folderContent, f.FileName)
		if fileutil.FileExists(fn) {
			contentFiles = append(contentFiles, fn)
		}
	}

	for _, d := range deployments {
		pub, ok := e.publishers[d.Type]
		if !ok {
			log.Warn(rc.logger, "no publisher registered for deployment", "deployment", d.Name, "type", d.Type.String())
			continue
		}
		files := contentFiles
		if d.CreateZip {
			if !zipped {
				log.Warn(rc.logger, "deployment wants archive but none was produced", "deployment", d.Name)
				continue
			}
			files = []string{e.zipPath(rc)}
		}
		if len(files) == 0 {
			log.Info(rc.logger, "nothing to deploy", "deployment", d.Name)
			continue
		}
		err := pub.Publish(rc.ctx, &deploy.Context{
			Logger:        rc.logger,
			Profile:       p,
			Deployment:    d,
			ContentFolder: rc.folderContent,
			Files:         files,
		})
		if err != nil {
			log.Error(rc.logger, "deployment failed", "deployment", d.Name, "type", d.Type.String(), "err", err)
			continue
		}
		log.Info(rc.logger, "deployment finished", "deployment", d.Name, "type", d.Type.String(), "files", len(files))
	}
}
