package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint rejected a write.
	ErrAlreadyExists = errors.New("already exists")
)

// Application error codes. They decide the transport status and whether the
// message may be shown to a user.
const (
	EINVALID      = "invalid"
	ENOTFOUND     = "not_found"
	ECONFLICT     = "conflict"
	EUNAVAILABLE  = "unavailable"
	EUNAUTHORIZED = "unauthorized"
	EINTERNAL     = "internal"
)

// Kind groups errors by what went wrong in the cart/checkout domain.
type Kind string

const (
	KindIdentity         Kind = "identity"
	KindCartUnavailable  Kind = "cart_unavailable"
	KindCurrencyMismatch Kind = "currency_mismatch"
	KindCheckout         Kind = "checkout"
)

// Error is an application error with a code and a user-safe message.
type Error struct {
	// Code is the machine-readable category (EINVALID, ENOTFOUND, ...).
	Code string

	// Kind is the domain taxonomy the error belongs to, if any.
	Kind Kind

	// Message is safe to show to users.
	Message string

	// Op is the operation where the error occurred, e.g. "checkout.convert".
	Op string

	// Err is the wrapped cause.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new domain error with a formatted message.
func Errorf(code string, kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrapf derives a detailed error from a sentinel. The result keeps the
// sentinel's code and kind, and errors.Is(result, sentinel) holds.
func Wrapf(sentinel *Error, op, format string, args ...interface{}) error {
	return &Error{
		Code:    sentinel.Code,
		Kind:    sentinel.Kind,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
		Err:     sentinel,
	}
}

// WrapError wraps err with a code and operation. Returns nil if err is nil.
func WrapError(err error, code, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// ErrorCode extracts the code from err. Non-domain errors are EINTERNAL.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return EINVALID
	}
	return EINTERNAL
}

// ErrorKind extracts the domain kind from err, or "" when it has none.
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ErrorMessage returns a message suitable for users. Internal details are hidden.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Code != EINTERNAL {
		return e.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return "Please correct the highlighted fields."
	}
	return "An internal error occurred. Please try again later."
}

// Retryable reports whether the caller may retry the operation automatically.
func Retryable(err error) bool {
	return ErrorKind(err) == KindCartUnavailable
}

// IsCheckoutError reports whether err belongs to the checkout family.
func IsCheckoutError(err error) bool {
	return ErrorKind(err) == KindCheckout
}

// Cart identity and lifecycle.
var (
	ErrIdentityRequired = Errorf(EUNAUTHORIZED, KindIdentity, "No user or session available to identify the cart")
	ErrCartUnavailable  = Errorf(EUNAVAILABLE, KindCartUnavailable, "Could not obtain an active cart; please retry")
	ErrCartNotFound     = Errorf(ENOTFOUND, "", "Cart not found")
	ErrProductNotFound  = Errorf(ENOTFOUND, "", "Product not found")
	ErrCurrencyMismatch = Errorf(EINVALID, KindCurrencyMismatch, "Product currency does not match cart currency")
)

// Checkout family.
var (
	ErrCartNotActive       = Errorf(ECONFLICT, KindCheckout, "Cart is no longer active")
	ErrCartEmpty           = Errorf(EINVALID, KindCheckout, "Cart is empty")
	ErrMixedCurrency       = Errorf(EINVALID, KindCheckout, "Cart contains items in a different currency")
	ErrProductUnavailable  = Errorf(ECONFLICT, KindCheckout, "Product unavailable")
	ErrInsufficientStock   = Errorf(ECONFLICT, KindCheckout, "Insufficient stock")
	ErrCouponInvalid       = Errorf(EINVALID, KindCheckout, "Invalid or inactive coupon code")
	ErrCouponNotStarted    = Errorf(EINVALID, KindCheckout, "Coupon not yet active")
	ErrCouponExpired       = Errorf(EINVALID, KindCheckout, "Coupon has expired")
	ErrCouponCurrency      = Errorf(EINVALID, KindCheckout, "Coupon currency mismatch")
	ErrCouponMisconfigured = Errorf(EINVALID, KindCheckout, "Coupon misconfigured")
)

// Orders.
var (
	ErrOrderNotFound      = Errorf(ENOTFOUND, "", "Order not found")
	ErrOrderNotCancelable = Errorf(ECONFLICT, "", "Only pending or paid orders can be canceled")
)

// ValidationError carries field-level failures, e.g. from address normalization.
type ValidationError struct {
	Fields map[string]string
	Op     string
}

func (e *ValidationError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: validation failed: %d field(s)", e.Op, len(e.Fields))
	}
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(op string, fields map[string]string) *ValidationError {
	return &ValidationError{Op: op, Fields: fields}
}
