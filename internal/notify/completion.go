package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/bedasa/dataport/sdk"
	"github.com/pinpt/go-common/v10/log"
	"github.com/russross/blackfriday/v2"
)

// CompletionNotifier sends the end of run notification mail. The recipient
// is resolved through a fallback chain: the profile's explicit completion
// addresses, then the webmaster address, then the company address, then the
// sending account itself.
type CompletionNotifier struct {
	Mailer         Mailer
	WebmasterEmail string
	CompanyEmail   string
}

// ShouldNotify decides whether a completed run triggers a notification.
// Explicit completion addresses always do; system profiles notify unless the
// provider declares it can omit the completion mail.
func (n *CompletionNotifier) ShouldNotify(profile *sdk.Profile, features sdk.Feature) bool {
	if len(profile.CompletedEmails) > 0 {
		return true
	}
	if profile.IsSystemProfile && !features.Supports(sdk.FeatureCanOmitCompletionMail) {
		return true
	}
	return false
}

func (n *CompletionNotifier) recipients(profile *sdk.Profile) []string {
	if len(profile.CompletedEmails) > 0 {
		return profile.CompletedEmails
	}
	if n.WebmasterEmail != "" {
		return []string{n.WebmasterEmail}
	}
	if n.CompanyEmail != "" {
		return []string{n.CompanyEmail}
	}
	if profile.EmailAccount != "" {
		return []string{profile.EmailAccount}
	}
	return nil
}

// Notify sends the completion mail for one finished run
func (n *CompletionNotifier) Notify(ctx context.Context, logger sdk.Logger, profile *sdk.Profile, result *sdk.ExportResult) error {
	if n.Mailer == nil {
		return fmt.Errorf("no mailer configured")
	}
	to := n.recipients(profile)
	if len(to) == 0 {
		return fmt.Errorf("no completion recipients resolvable for profile %d", profile.ID)
	}
	var md strings.Builder
	fmt.Fprintf(&md, "## Export %q completed\n\n", profile.Name)
	if result.Succeeded() {
		fmt.Fprintf(&md, "The export finished successfully with **%d** file(s).\n\n", len(result.Files))
	} else {
		fmt.Fprintf(&md, "The export finished with an error:\n\n> %s\n\n", result.LastError)
	}
	for _, f := range result.Files {
		fmt.Fprintf(&md, "- `%s`\n", f.FileName)
	}
	body := string(blackfriday.Run([]byte(md.String())))
	msg := &Message{
		From:     profile.EmailAccount,
		To:       to,
		Subject:  fmt.Sprintf("Export %q completed", profile.Name),
		HTMLBody: body,
	}
	if err := n.Mailer.Send(ctx, msg); err != nil {
		return err
	}
	log.Info(logger, "sent completion notification", "profile", profile.ID, "recipients", strings.Join(to, ","))
	return nil
}
