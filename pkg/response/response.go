package response

import (
	"net/http"

	"github.com/getdigitalpayments/paybridge/pkg/apperr"
)

type APIResponseCode int

const (
	APIResponseCodeOK              APIResponseCode = 0
	APIResponseCodeBadRequest      APIResponseCode = 40000
	APIResponseCodeUnauthenticated APIResponseCode = 40100
	APIResponseCodeForbidden       APIResponseCode = 40300
	APIResponseCodeError           APIResponseCode = 50000
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:              "ok",
	APIResponseCodeBadRequest:      "invalid argument",
	APIResponseCodeUnauthenticated: "unauthenticated",
	APIResponseCodeForbidden:       "permission denied",
	APIResponseCodeError:           "internal error",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT / FromError helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Kind    apperr.Kind     `json:"kind,omitempty"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Kind: codeToKind(code), Data: data}
}

// FromError maps an application error to an HTTP status and envelope.
func FromError(err error) (int, *APIResponse[any]) {
	kind := apperr.KindOf(err)
	var code APIResponseCode
	var status int
	switch kind {
	case apperr.KindUnauthenticated:
		code, status = APIResponseCodeUnauthenticated, http.StatusUnauthorized
	case apperr.KindInvalidArgument:
		code, status = APIResponseCodeBadRequest, http.StatusBadRequest
	case apperr.KindPermissionDenied:
		code, status = APIResponseCodeForbidden, http.StatusForbidden
	default:
		code, status = APIResponseCodeError, http.StatusInternalServerError
	}
	return status, &APIResponse[any]{Code: code, Message: apperr.Message(err), Kind: kind}
}

func codeToKind(code APIResponseCode) apperr.Kind {
	switch code {
	case APIResponseCodeBadRequest:
		return apperr.KindInvalidArgument
	case APIResponseCodeUnauthenticated:
		return apperr.KindUnauthenticated
	case APIResponseCodeForbidden:
		return apperr.KindPermissionDenied
	case APIResponseCodeError:
		return apperr.KindInternal
	}
	return ""
}
