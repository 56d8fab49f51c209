package types

import (
	"fmt"
	"net/http"
)

// ErrorType 返回给调用方的错误类型
type ErrorType string

const (
	ErrorTypeIdentityMissing       ErrorType = "identity_missing"
	ErrorTypeIdentityRejected      ErrorType = "identity_rejected"
	ErrorTypeNoMatchingParticipant ErrorType = "no_matching_participant"
	ErrorTypeSignatureRejected     ErrorType = "signature_rejected"
	ErrorTypeSignatureFailed       ErrorType = "signature_failed"
	ErrorTypeInvalidNetwork        ErrorType = "invalid_network"
	ErrorTypeInvalidPayload        ErrorType = "invalid_payload"
	ErrorTypeUnsupportedBlockchain ErrorType = "unsupported_blockchain"
	ErrorTypeInternal              ErrorType = "internal"
)

// Error 统一的结构化错误
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newError(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

func ErrIdentityMissing() *Error {
	return newError(ErrorTypeIdentityMissing, http.StatusForbidden, "There are no identities available for this origin")
}

func ErrIdentityRejected() *Error {
	return newError(ErrorTypeIdentityRejected, http.StatusPaymentRequired, "User rejected the provision of an identity")
}

func ErrNoMatchingParticipant() *Error {
	return newError(ErrorTypeNoMatchingParticipant, http.StatusBadRequest, "None of the transaction participants are held by this identity")
}

func ErrSignatureRejected() *Error {
	return newError(ErrorTypeSignatureRejected, http.StatusPaymentRequired, "User rejected the signature request")
}

func ErrSignatureFailed() *Error {
	return newError(ErrorTypeSignatureFailed, http.StatusInternalServerError, "Not all required signatures could be produced")
}

func ErrInvalidNetwork(reason string) *Error {
	return newError(ErrorTypeInvalidNetwork, http.StatusBadRequest, "The network provided is invalid: %s", reason)
}

func ErrInvalidPayload(reason string) *Error {
	return newError(ErrorTypeInvalidPayload, http.StatusBadRequest, "Malformed request payload: %s", reason)
}

func ErrUnsupportedBlockchain(blockchain string) *Error {
	return newError(ErrorTypeUnsupportedBlockchain, http.StatusBadRequest, "Blockchain %q is not supported", blockchain)
}

func ErrInternal() *Error {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, "Internal error")
}

// PublicHTTPErrorType HTTP 桥接层错误类型
type PublicHTTPErrorType string

const (
	PublicHTTPErrorTypeGeneric         PublicHTTPErrorType = "generic"
	PublicHTTPErrorTypeMissingOrigin   PublicHTTPErrorType = "MISSING_ORIGIN"
	PublicHTTPErrorTypeApprovalMissing PublicHTTPErrorType = "APPROVAL_NOT_FOUND"
	PublicHTTPErrorTypeApprovalBlocked PublicHTTPErrorType = "APPROVAL_NOT_ACTIVE"
	PublicHTTPErrorTypeHolderAuth      PublicHTTPErrorType = "HOLDER_UNAUTHORIZED"
)
