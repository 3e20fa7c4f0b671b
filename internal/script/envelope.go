package script

import (
	"net/http"
	"strconv"
	"strings"
	"unicode"
)

// MessageSuccess is the message carried by every successful envelope.
const MessageSuccess = "success"

// Envelope is the uniform response shape of every script.
//
// Data serialises as null when the script has nothing to return.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// OK builds a 200 envelope around data.
func OK(data any) Envelope {
	return Envelope{Code: http.StatusOK, Message: MessageSuccess, Data: data}
}

// BadRequest builds a 400 envelope with no payload.
func BadRequest(message string) Envelope {
	return Envelope{Code: http.StatusBadRequest, Message: message}
}

// NotFound builds a 404 envelope with no payload.
func NotFound(message string) Envelope {
	return Envelope{Code: http.StatusNotFound, Message: message}
}

// Failure builds an envelope for a host-level failure with the given status.
// An empty message falls back to the standard status text.
func Failure(status int, message string) Envelope {
	if message == "" {
		message = http.StatusText(status)
	}
	return Envelope{Code: status, Message: message}
}

// Param returns the value of name, or "" when it was not supplied.
func Param(p Params, name string) string {
	value, _ := p.Get(name)
	return value
}

// RequireFields reports whether every named parameter is present and non-empty.
func RequireFields(p Params, names ...string) bool {
	for _, name := range names {
		if value, ok := p.Get(name); !ok || value == "" {
			return false
		}
	}
	return true
}

// ParseID reads the integer an identifier parameter starts with.
//
// Leading whitespace and an optional sign are skipped, then the longest run
// of digits is taken ("5abc" and "5.7" are 5, "0x1A" is 26). It reports false
// when there is no digit, the value is zero or it does not fit an int64.
func ParseID(raw string) (int64, bool) {
	id, ok := leadingInt(raw)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// IsZeroID reports whether raw denotes the "no identifier" value: blank text
// or text whose leading integer is zero.
func IsZeroID(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return true
	}
	id, ok := leadingInt(raw)
	return ok && id == 0
}

func leadingInt(raw string) (int64, bool) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)

	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}

	base, isDigit := 10, isDecimalDigit
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base, isDigit = 16, isHexDigit
		s = s[2:]
	}

	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0, false
	}

	id, err := strconv.ParseInt(sign+s[:end], base, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func isDecimalDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDecimalDigit(c) || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
