package auth

// UserClaims represents the JWT claims this service cares about. Tokens are
// minted by the hosted identity provider; we only read them.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// AuthError is a structured authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

var (
	ErrUnauthorized = AuthError{Code: "UNAUTHORIZED", Message: "authentication required"}
	ErrInvalidToken = AuthError{Code: "INVALID_TOKEN", Message: "invalid or malformed token"}
	ErrTokenExpired = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
)
