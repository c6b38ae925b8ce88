package ports

import "context"

// Keys used inside the session security context.
const (
	SessionKeySignIn  = "SignIn"
	SessionKeyVisitID = "VisitId"
	SessionKeyCode    = "ConfirmationCode"

	SessionKeyFlashError   = "Flash:Error"
	SessionKeyFlashInfo    = "Flash:Info"
	SessionKeyFlashSuccess = "Flash:Success"
)

// Session is the key-value security context scoped to one client session.
// The backing store owns expiry; GetString returns
// domain.ErrSessionKeyMissing for absent or expired keys.
type Session interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	ContainsKey(ctx context.Context, key string) (bool, error)
}
