package loyalty

// Error is a typed domain error with a stable code for the HTTP layer.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a new domain error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Domain errors. Anything not in this set coming out of the service layer is
// a store failure and is propagated wrapped, never swallowed.
var (
	ErrCustomerNotFound   = NewError("CUSTOMER_NOT_FOUND", "customer not found")
	ErrRewardNotFound     = NewError("REWARD_NOT_FOUND", "reward not found")
	ErrInvalidInput       = NewError("INVALID_INPUT", "invalid input provided")
	ErrInsufficientPoints = NewError("INSUFFICIENT_POINTS", "insufficient points for redemption")
)
