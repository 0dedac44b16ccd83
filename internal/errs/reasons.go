package errs

import (
	"fmt"

	"github.com/samber/oops"
)

// Reason codes attached to class errors. They are safe to show to clients.
const (
	ReasonMissingToken   = "missing_token"
	ReasonInvalidToken   = "invalid_token"
	ReasonEmailTaken     = "email_taken"
	ReasonBadCredentials = "bad_credentials"
	ReasonUserNotFound   = "user_not_found"
	ReasonPostNotFound   = "post_not_found"
	ReasonRateLimited    = "rate_limited"
)

// WithReason wraps a class sentinel with a reason code and optional context pairs.
// Context keys and values alternate: WithReason(ErrNotFound, ReasonPostNotFound, "post_id", id).
func WithReason(class error, reason string, kv ...any) error {
	return oops.Code(reason).With(kv...).Wrap(class)
}

// Reason returns the reason code attached to err, or "" if none.
func Reason(err error) string {
	oe, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code := fmt.Sprint(oe.Code())
	if code == "<nil>" {
		return ""
	}
	return code
}
