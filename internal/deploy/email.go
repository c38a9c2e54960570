package deploy

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/bedasa/dataport/internal/notify"
	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/log"
)

// EmailPublisher sends produced files as mail attachments
type EmailPublisher struct {
	mailer notify.Mailer
}

var _ Publisher = (*EmailPublisher)(nil)

// NewEmailPublisher returns an email deployment publisher delivering through mailer
func NewEmailPublisher(mailer notify.Mailer) *EmailPublisher {
	return &EmailPublisher{mailer: mailer}
}

// Type returns the deployment target type this publisher serves
func (p *EmailPublisher) Type() sdk.DeploymentType {
	return sdk.DeploymentEmail
}

// Publish mails the context's files as attachments of a single message
func (p *EmailPublisher) Publish(ctx context.Context, dc *Context) error {
	if len(dc.Deployment.EmailAddresses) == 0 {
		return fmt.Errorf("email deployment %q has no addresses", dc.Deployment.Name)
	}
	attachments := make([]notify.Attachment, 0, len(dc.Files))
	for _, fn := range dc.Files {
		buf, err := ioutil.ReadFile(fn)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", filepath.Base(fn), err)
		}
		attachments = append(attachments, notify.Attachment{
			FileName: filepath.Base(fn),
			Content:  buf,
		})
	}
	subject := dc.Deployment.EmailSubject
	if subject == "" {
		subject = fmt.Sprintf("Export %q", dc.Profile.Name)
	}
	msg := &notify.Message{
		From:        dc.Profile.EmailAccount,
		To:          dc.Deployment.EmailAddresses,
		Subject:     subject,
		HTMLBody:    fmt.Sprintf("<p>Attached: %d export file(s) of profile %q.</p>", len(attachments), dc.Profile.Name),
		Attachments: attachments,
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("error mailing export files: %w", err)
	}
	log.Debug(dc.Logger, "mailed export files", "count", len(attachments), "deployment", dc.Deployment.Name)
	return nil
}
