package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "datacleaner/internal/errors"
	"datacleaner/pkg/contracts/domain"
)

// maxJSONBody caps request bodies decoded by DecodeAndValidate. Uploads
// are multipart and limited separately.
const maxJSONBody = 1 << 20

// RequestValidator decodes JSON bodies and validates them against their
// struct tags.
type RequestValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewRequestValidator creates a validator with the dataset specific tags
// registered: kind (a conversion target), column (a non-blank column name)
// and filename.
func NewRequestValidator(logger *slog.Logger) *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("kind", isTargetKind)
	_ = v.RegisterValidation("column", isColumnName)
	_ = v.RegisterValidation("filename", isValidFilename)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "request_validator")),
	}
}

// DecodeAndValidate decodes the JSON body of r into v and validates it. The
// returned error is an *apierrors.APIError ready for the error handler.
func (m *RequestValidator) DecodeAndValidate(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return apierrors.NewValidationError("Request body is required")
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxJSONBody)

	if err := render.DecodeJSON(r.Body, v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apierrors.NewWithDetails(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
				"Request body exceeds maximum allowed size", map[string]int64{"max_size": maxErr.Limit})
		}
		m.logger.DebugContext(r.Context(), "request body rejected",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return apierrors.InvalidRequestWithError(err)
	}
	return m.ValidateStruct(v)
}

// ValidateStruct validates a struct and returns validation errors
func (m *RequestValidator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fieldPath(fe),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// fieldPath drops the struct name from the namespace, leaving JSON names
// such as columns[1].
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// ContentTypeValidator rejects bodies whose media type is not listed.
// Requests without a body are let through.
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err == nil {
				for _, allowed := range contentTypes {
					if strings.EqualFold(mediaType, allowed) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			writeProblem(w, r, http.StatusUnsupportedMediaType, apierrors.TypeUnsupportedMedia,
				"Unsupported Media Type",
				fmt.Sprintf("Content-Type must be one of: %s", strings.Join(contentTypes, ", ")))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "kind":
		return fmt.Sprintf("%s must be one of: %s", field, joinKinds(domain.TargetKinds))
	case "column":
		return fmt.Sprintf("%s must be a non-blank column name", field)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func joinKinds(kinds []domain.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// isTargetKind accepts any spelling ParseKind understands, as long as it
// names a conversion target.
func isTargetKind(fl validator.FieldLevel) bool {
	kind, err := domain.ParseKind(fl.Field().String())
	return err == nil && kind.IsTarget()
}

func isColumnName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return strings.TrimSpace(name) != "" && len(name) <= 1024
}

func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" || len(filename) > 255 {
		return false
	}
	return !strings.Contains(filename, "..") && !strings.ContainsAny(filename, `/\`)
}

// QueryParamValidator parses and range checks query parameters, writing a
// problem response when a value is rejected.
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt validates an integer query parameter
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max int, defaultValue int) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}

	if intValue < min || intValue > max {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}

	return intValue, true
}

// ValidateEnum validates an enum query parameter
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}

	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}

// ValidateBool validates a boolean query parameter
func (v *QueryParamValidator) ValidateBool(w http.ResponseWriter, r *http.Request, param string, defaultValue bool) (bool, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be true or false", param)))
		return false, false
	}
	return b, true
}

// RequireString returns a mandatory query parameter.
func (v *QueryParamValidator) RequireString(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	value := r.URL.Query().Get(param)
	if strings.TrimSpace(value) == "" {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s is required", param)))
		return "", false
	}
	return value, true
}
