package errors

// AuthError is the only text a browser ever sees when an exchange fails.
type AuthError string

func (e AuthError) Error() string {
	return string(e)
}

const (
	ErrAuthentication AuthError = "Authentication error"
	ErrTokenRefresh   AuthError = "Token refresh error"
)
