package httperrors

import (
	"net/http"

	"github.com/SafeMPC/wallet-bridge/internal/types"
)

var (
	ErrBadRequestMissingOrigin = NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeMissingOrigin, "Request origin is missing.")
	ErrNotFoundApproval        = NewHTTPError(http.StatusNotFound, types.PublicHTTPErrorTypeApprovalMissing, "Approval not found.")
	ErrConflictApprovalBlocked = NewHTTPError(http.StatusConflict, types.PublicHTTPErrorTypeApprovalBlocked, "Approval is queued behind the active approval.")
	ErrUnauthorizedHolder      = NewHTTPError(http.StatusUnauthorized, types.PublicHTTPErrorTypeHolderAuth, "Holder token is missing or invalid.")
)
