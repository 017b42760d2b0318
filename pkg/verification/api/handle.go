package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	"github.com/tasknest/tasknest/pkg/accounts"
	"github.com/tasknest/tasknest/pkg/client"
	"github.com/tasknest/tasknest/pkg/tokenstore"
	"github.com/tasknest/tasknest/pkg/verification"
)

// Handler exposes the verification operations over HTTP
type Handler struct {
	service   *verification.Service
	directory accounts.Directory
}

// NewHandler creates a new verification API handler
func NewHandler(service *verification.Service, directory accounts.Directory) *Handler {
	return &Handler{
		service:   service,
		directory: directory,
	}
}

// VerifyEmail handles POST /verify. The endpoint is public: the token
// itself is the proof of ownership.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Token is required"})
		return
	}

	result, err := h.service.AttemptRedemption(r.Context(), req.Token)
	if err != nil {
		// Internal causes stay internal; the caller gets a generic
		// retry message and no access.
		slog.Error("Failed to redeem verification token", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while verifying email, please try again"})
		return
	}

	switch result.Status {
	case tokenstore.RedemptionSuccess:
		resp := VerifyEmailResponse{Message: "Email verified successfully"}
		if account, err := h.directory.GetAccount(r.Context(), result.AccountID); err == nil && account.VerifiedAt != nil {
			resp.VerifiedAt = account.VerifiedAt.UTC().Format(time.RFC3339)
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, resp)
	case tokenstore.RedemptionNotFound:
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "Invalid verification token"})
	case tokenstore.RedemptionExpired:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Verification token has expired, request a new link"})
	case tokenstore.RedemptionAlreadyUsed:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Verification token has already been used"})
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while verifying email, please try again"})
	}
}

// ResendVerification handles POST /resend
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.GetAuthUser(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	outcome, err := h.service.RequestResend(r.Context(), authUser.UserUuid)
	if err != nil {
		if errors.Is(err, verification.ErrAccountNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{Error: "Account not found"})
			return
		}
		slog.Error("Failed to resend verification email", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while sending verification email, please try again"})
		return
	}

	switch outcome.Status {
	case verification.IssueAccepted:
		resp := ResendVerificationResponse{Message: "Verification email sent successfully"}
		if outcome.DeliveryFailed {
			resp.Message = "Verification link created but delivery failed, please retry"
			resp.DeliveryFailed = true
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, resp)
	case verification.IssueAlreadyVerified:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Email is already verified"})
	case verification.IssueCooldownBlocked:
		seconds := int(outcome.RetryAfter.Seconds() + 0.5)
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, ErrorResponse{
			Error:             "Please wait before requesting another verification email",
			RetryAfterSeconds: seconds,
		})
	case verification.IssueDailyLimitBlocked:
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, ErrorResponse{Error: "Daily verification email limit reached, try again tomorrow"})
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while sending verification email, please try again"})
	}
}

// GetVerificationStatus handles GET /status
func (h *Handler) GetVerificationStatus(w http.ResponseWriter, r *http.Request) {
	authUser, ok := client.GetAuthUser(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	account, err := h.directory.GetAccount(r.Context(), authUser.UserUuid)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{Error: "Account not found"})
			return
		}
		slog.Error("Failed to get verification status", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Error: "An error occurred while retrieving verification status"})
		return
	}

	response := VerificationStatusResponse{}
	copier.Copy(&response, account)
	response.AccessMode = string(h.service.GetSessionAccess(r.Context(), account.ID).Mode)

	if account.VerifiedAt != nil {
		verifiedAtStr := account.VerifiedAt.Format(time.RFC3339)
		response.VerifiedAt = &verifiedAtStr
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}
