package album

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome classifies the status code of a failed call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeInvalidParams
	OutcomeUnauthorized
	OutcomeForbidden
	OutcomeNotFound
	OutcomeOther
)

var outcomeNames = map[Outcome]string{
	OutcomeOK:            "OK",
	OutcomeInvalidParams: "INVALID_PARAMS",
	OutcomeUnauthorized:  "UNAUTHORIZED",
	OutcomeForbidden:     "FORBIDDEN",
	OutcomeNotFound:      "NOT_FOUND",
	OutcomeOther:         "OTHER",
}

func (o Outcome) String() string {
	return outcomeNames[o]
}

func outcomeFromStatus(code int) Outcome {
	switch code {
	case http.StatusBadRequest:
		return OutcomeInvalidParams
	case http.StatusUnauthorized:
		return OutcomeUnauthorized
	case http.StatusForbidden:
		return OutcomeForbidden
	case http.StatusNotFound:
		return OutcomeNotFound
	}
	return OutcomeOther
}

// APIError is returned for every response outside an operation's success codes.
type APIError struct {
	Op      string
	Outcome Outcome
	Code    int
	Reason  string
	Body    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Reason, e.Code)
}

// OutcomeOf returns OutcomeOK for nil, the tagged outcome of an *APIError,
// and OutcomeOther for anything else.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Outcome
	}
	return OutcomeOther
}

// reasons maps an outcome to the message shown for one operation.
type reasons map[Outcome]string

var defaultReasons = reasons{
	OutcomeInvalidParams: "invalid parameters",
	OutcomeUnauthorized:  "unauthorized, the token is missing or expired",
	OutcomeForbidden:     "forbidden",
	OutcomeNotFound:      "not found",
}

func newAPIError(op string, code int, body string, r reasons) *APIError {
	outcome := outcomeFromStatus(code)
	reason, ok := r[outcome]
	if !ok {
		reason, ok = defaultReasons[outcome]
	}
	if !ok {
		reason = r[OutcomeOther]
	}
	if reason == "" {
		reason = op + " failed"
	}
	return &APIError{
		Op:      op,
		Outcome: outcome,
		Code:    code,
		Reason:  reason,
		Body:    body,
	}
}
