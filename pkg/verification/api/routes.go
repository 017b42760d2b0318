package api

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the authenticated verification endpoints. VerifyEmail
// is registered separately by the caller because it must stay reachable
// without a session: the link lands in a mail client, not in the app.
func Routes(r chi.Router, h *Handler) {
	r.Post("/resend", h.ResendVerification)
	r.Get("/status", h.GetVerificationStatus)
}
