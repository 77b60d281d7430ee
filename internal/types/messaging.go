package types

// SendInput carries one pre-rendered email to an EmailProvider.
// Template resolution happens upstream; providers only transmit.
type SendInput struct {
	To       string
	From     string
	FromName string
	Subject  string
	BodyText string
	BodyHTML string

	// ReferenceID correlates the provider call with a log entry for
	// observability. Optional.
	ReferenceID string
}
