package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pawstay/pawstay/services/api/internal/domain"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a single JSON object into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, fmt.Sprintf("%s is required", fe.Field()))
	case "uuid":
		writeError(w, http.StatusBadRequest, codeInvalidID, fmt.Sprintf("%s: %s", fe.Field(), domain.ErrInvalidID))
	case "datetime":
		writeError(w, http.StatusBadRequest, codeInvalidDate, fmt.Sprintf("%s: expected YYYY-MM-DD", fe.Field()))
	default:
		writeError(w, http.StatusBadRequest, codeInvalidField, fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

// pathID extracts the id segment from paths shaped like prefix/{id}/suffix.
// An empty suffix matches prefix/{id}.
func pathID(path, prefix, suffix string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	prefixParts := strings.Split(strings.Trim(prefix, "/"), "/")

	want := len(prefixParts) + 1
	if suffix != "" {
		want++
	}
	if len(parts) != want {
		return "", false
	}
	for i, p := range prefixParts {
		if parts[i] != p {
			return "", false
		}
	}
	id := parts[len(prefixParts)]
	if id == "" {
		return "", false
	}
	if suffix != "" && parts[len(parts)-1] != suffix {
		return "", false
	}
	return id, true
}

// pathAction splits prefix/{id}/{action}; action is empty for prefix/{id}.
func pathAction(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(strings.Trim(path, "/"), strings.Trim(prefix, "/")+"/")
	if rest == strings.Trim(path, "/") {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	}
	return "", "", false
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}
