package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/platform-user/internal/errs"
	"github.com/deppfellow/platform-user/internal/script"
)

// MaxBodyBytes caps the request body read into a parameter bag.
const MaxBodyBytes = 1 << 20

// BindParams builds the parameter bag for c.
//
// Query-string values are read first; body values (JSON object or form) override them.
// JSON scalars become their text form (5 -> "5", true -> "true"); null, false
// and 0 mean absent.
func BindParams(c echo.Context) (script.Values, error) {
	params := script.Values{}

	for name, values := range c.QueryParams() {
		if len(values) > 0 {
			params[name] = values[0]
		}
	}

	req := c.Request()
	if req.Body == nil || req.ContentLength == 0 {
		return params, nil
	}

	ctype := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		return params, bindJSON(req, params)

	case strings.HasPrefix(ctype, echo.MIMEApplicationForm), strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		form, err := c.FormParams()
		if err != nil {
			return nil, errs.NewBadRequestError("Invalid form body")
		}
		for name, values := range form {
			if len(values) > 0 {
				params[name] = values[0]
			}
		}
		return params, nil

	case ctype == "":
		// Untyped bodies are accepted when they hold a JSON object.
		return params, bindJSON(req, params)

	default:
		return nil, errs.NewBadRequestError(fmt.Sprintf("Unsupported content type %q", ctype))
	}
}

func bindJSON(req *http.Request, params script.Values) error {
	body, err := io.ReadAll(io.LimitReader(req.Body, MaxBodyBytes+1))
	if err != nil {
		return errs.NewBadRequestError("Could not read request body")
	}
	if len(body) > MaxBodyBytes {
		return errs.NewBadRequestError("Request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return errs.NewBadRequestError("Invalid JSON body")
	}

	for name, value := range payload {
		text, present, err := scalarText(value)
		if err != nil {
			return errs.NewBadRequestError(fmt.Sprintf("Parameter %q must be a scalar value", name))
		}
		if present {
			params[name] = text
		} else {
			delete(params, name)
		}
	}
	return nil
}

// scalarText converts one decoded JSON value to text.
// null, false and numeric zero are falsy and count as absent.
func scalarText(value any) (text string, present bool, err error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		return v, true, nil
	case json.Number:
		if text := numberText(v); text != "0" {
			return text, true, nil
		}
		return "", false, nil
	case bool:
		if !v {
			return "", false, nil
		}
		return "true", true, nil
	default:
		return "", false, fmt.Errorf("unsupported value of type %T", value)
	}
}

// numberText prints integral numbers without a fraction, so 5 and 5.0 both become "5".
func numberText(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return n.String()
}
