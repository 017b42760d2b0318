package notification

import "context"

// Gateway delivers a verification link to an address. Delivery is
// best-effort from the caller's perspective: a failure is surfaced but
// never triggers an automatic retry or a token re-issue here.
type Gateway interface {
	Deliver(ctx context.Context, address, verificationURL string) error
}
