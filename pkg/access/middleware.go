package access

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tasknest/tasknest/pkg/accounts"
	"github.com/tasknest/tasknest/pkg/client"
)

// deniedResponse is the JSON body for a denied request.
type deniedResponse struct {
	Error      string `json:"error"`
	RedirectTo string `json:"redirect_to"`
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func deny(w http.ResponseWriter, r *http.Request, d Decision) {
	if wantsHTML(r) {
		http.Redirect(w, r, d.RedirectTo, http.StatusSeeOther)
		return
	}

	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, deniedResponse{Error: d.Reason, RedirectTo: d.RedirectTo})
}

// EdgeInterceptor enforces the access policy from the email_verified
// claim carried in the session token. The claim may be stale for a few
// seconds after verification, which is safe: it only ever errs toward
// showing the locked state. It is a UX fast path, not the security
// boundary; Authoritative is.
// Must be used after client.AuthUserMiddleware.
func EdgeInterceptor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := client.GetAuthUser(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			mode := ModeLimited
			if authUser.EmailVerified {
				mode = ModeFull
			}
			sa := SessionAccess{AccountID: authUser.UserUuid, Mode: mode}

			if d := Decide(sa, r.URL.Path); !d.Allow {
				slog.Debug("Edge interceptor redirecting unverified session",
					"account_id", authUser.UserId, "path", r.URL.Path)
				deny(w, r, d)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authoritative enforces the access policy from a fresh account lookup
// on every request. This is the source-of-truth boundary: a lookup
// error resolves to Limited and the request is denied.
// Must be used after client.AuthUserMiddleware.
func Authoritative(directory accounts.Directory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := client.GetAuthUser(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			account, err := directory.GetAccount(r.Context(), authUser.UserUuid)
			sa := Resolve(account, err)

			if d := Decide(sa, r.URL.Path); !d.Allow {
				slog.Info("Authoritative check denied unverified session",
					"account_id", authUser.UserId, "path", r.URL.Path)
				deny(w, r, d)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Defend is the API defensive check: mutating handlers call it before
// acting, so a client that somehow bypassed the middleware layers still
// cannot act on an unverified account. It shares Decide with the other
// two layers, so the three can never disagree on the same account
// state.
func Defend(ctx context.Context, directory accounts.Directory, accountID uuid.UUID, resource string) Decision {
	account, err := directory.GetAccount(ctx, accountID)
	return Decide(Resolve(account, err), resource)
}
