package access

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest/pkg/accounts"
)

// Mode is the session access mode derived from account verification
// state. It is never persisted; every check recomputes it from the
// account record so a verification success is visible to sessions that
// are already open.
type Mode string

const (
	// ModeLimited allows only verification-related resources.
	ModeLimited Mode = "limited"
	// ModeFull allows all protected resources.
	ModeFull Mode = "full"
)

// SessionAccess is the derived access state for one account's session.
type SessionAccess struct {
	AccountID uuid.UUID
	Mode      Mode
}

// Resolve derives the access mode from an account lookup result. Any
// ambiguity (lookup error, missing account) resolves to Limited, never
// Full: every enforcement point inherits this fail-closed rule.
func Resolve(account *accounts.Account, err error) SessionAccess {
	if err != nil || account == nil {
		if err != nil {
			slog.Warn("Resolving access with failed account lookup, failing closed", "error", err)
		}
		return SessionAccess{Mode: ModeLimited}
	}

	mode := ModeLimited
	if account.Verified {
		mode = ModeFull
	}

	return SessionAccess{AccountID: account.ID, Mode: mode}
}
