package hotelclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
	KindNetwork      Kind = "network"
)

// Error is a failed call. Status is 0 when no response was received.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d %s): %s", e.Code, e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Kind, e.Message)
}

// KindOf reports the kind of a client error; other errors are Network.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNetwork
}

func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Code: "NETWORK", Message: err.Error()}
}

var serverKinds = map[string]Kind{
	"UNAUTHORIZED": KindUnauthorized,
	"FORBIDDEN":    KindForbidden,
	"VALIDATION":   KindValidation,
	"NOT_FOUND":    KindNotFound,
	"CONFLICT":     KindConflict,
	"RATE_LIMITED": KindRateLimited,
	"INTERNAL":     KindInternal,
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindInternal
	}
}

// decodeError reads the {"error":{kind,code,message}} envelope. Bodies in another shape
// (proxies, load balancers) fall back to the status code.
func decodeError(status int, body []byte) *Error {
	var env struct {
		Error struct {
			Kind    string `json:"kind"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	out := &Error{Kind: kindForStatus(status), Code: http.StatusText(status), Status: status}
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Code == "" {
		out.Message = truncate(string(body), 200)
		return out
	}
	if k, ok := serverKinds[env.Error.Kind]; ok {
		out.Kind = k
	}
	out.Code = env.Error.Code
	out.Message = env.Error.Message
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
