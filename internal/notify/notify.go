package notify

import "context"

// Attachment is a file attached to an outgoing message
type Attachment struct {
	FileName string
	Content  []byte
}

// Message is an outgoing mail message
type Message struct {
	From        string
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Mailer delivers messages. The pipeline treats delivery as an opaque
// collaborator; implementations decide the transport.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}
