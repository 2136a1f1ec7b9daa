package chat

// Error codes surfaced to realtime clients.
const (
	ErrCodeNoToken           = "no_token"
	ErrCodeInvalidToken      = "invalid_token"
	ErrCodeUserNotFound      = "user_not_found"
	ErrCodeValidation        = "validation"
	ErrCodeRecipientNotFound = "recipient_not_found"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodePersistence       = "persistence"
	ErrCodeInvalidMessage    = "invalid_message"
)

// ChatError wraps a code and human-readable message.
type ChatError struct {
	Code    string
	Message string
}

func (e *ChatError) Error() string {
	return e.Message
}

func chatError(code, msg string) *ChatError {
	return &ChatError{Code: code, Message: msg}
}
