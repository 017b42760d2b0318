package access

import "strings"

// PendingPath is where denied requests are pointed so the user can
// finish verifying.
const PendingPath = "/verify-email-pending"

// verificationPrefixes are the resources a Limited session may still
// reach: the pending page, redemption, resend and status. Everything
// else requires a Full session.
var verificationPrefixes = []string{
	PendingPath,
	"/verify-email",
	"/api/verification",
}

// Decision is the outcome of an enforcement check.
type Decision struct {
	Allow      bool
	Reason     string
	RedirectTo string
}

// IsVerificationResource reports whether the resource is part of the
// verification flow itself.
func IsVerificationResource(resource string) bool {
	for _, p := range verificationPrefixes {
		if resource == p || strings.HasPrefix(resource, p+"/") || strings.HasPrefix(resource, p+"?") {
			return true
		}
	}
	return false
}

// Decide is the single policy function shared by the edge interceptor,
// the authoritative per-request check and the API defensive check.
// Having one implementation is what keeps the three layers from
// drifting apart as the policy evolves.
func Decide(sa SessionAccess, resource string) Decision {
	if IsVerificationResource(resource) {
		return Decision{Allow: true}
	}

	if sa.Mode == ModeFull {
		return Decision{Allow: true}
	}

	return Decision{
		Allow:      false,
		Reason:     "email verification required",
		RedirectTo: PendingPath,
	}
}
