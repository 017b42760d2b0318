package api

// VerifyEmailRequest represents the request to redeem a verification token
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmailResponse represents the response after a successful redemption
type VerifyEmailResponse struct {
	Message    string `json:"message"`
	VerifiedAt string `json:"verified_at"`
}

// ResendVerificationResponse represents the response after an accepted resend
type ResendVerificationResponse struct {
	Message        string `json:"message"`
	DeliveryFailed bool   `json:"delivery_failed,omitempty"`
}

// VerificationStatusResponse represents the account's verification status
type VerificationStatusResponse struct {
	Verified   bool    `json:"verified"`
	VerifiedAt *string `json:"verified_at,omitempty"`
	AccessMode string  `json:"access_mode"`
}

// ErrorResponse represents an error response. RetryAfterSeconds is set
// on cooldown blocks so the UI can show a countdown.
type ErrorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}
