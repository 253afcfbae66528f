package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/pantry/internal/apperr"
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

type errorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError writes err as {"error", "code"} with the status its code maps
// to. Errors without a code are logged and reported as internal.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal error",
			Code:  string(apperr.CodeUnknown),
		})
		return
	}

	resp := errorResponse{Error: e.Error(), Code: string(e.Code)}
	if e.Code == apperr.CodeNoActiveHousehold {
		resp.Redirect = "/onboarding"
	}
	writeJSON(w, e.Code.HTTPStatus(), resp)
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.CodeInvalidArgument, "request body is required")
		}
		return apperr.Wrap(apperr.CodeInvalidArgument, "invalid JSON", err)
	}
	if err := validate.Struct(dst); err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, validationMessage(err), err)
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be an email address"
	case "min", "max", "gt":
		return field + " must be " + fe.Tag() + " " + fe.Param()
	default:
		return field + " is invalid"
	}
}
