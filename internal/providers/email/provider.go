package email

import "context"

// Provider delivers transactional mail. The community core treats
// delivery as best-effort: failures are logged by the caller, never
// surfaced to the requester.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}
