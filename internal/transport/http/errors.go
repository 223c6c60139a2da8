package http

import (
	"errors"

	"datacleaner/internal/dataprocessing"
	apierrors "datacleaner/internal/errors"
	"datacleaner/internal/services"
	"datacleaner/internal/validation"
)

// toAPIError maps service and dataset errors onto API errors. column names
// the column the request was about; a *ColumnError overrides it with the
// column that actually failed. Unknown errors are returned unchanged and
// end up as 500s.
func toAPIError(err error, column string) error {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return err
	}

	var colErr *dataprocessing.ColumnError
	if errors.As(err, &colErr) {
		column = colErr.Name
	}

	var coercionErr *dataprocessing.CoercionError
	if errors.As(err, &coercionErr) {
		return apierrors.ErrConversionFailed.WithMessage(coercionErr.Error()).
			WithExtension("reason", string(coercionErr.Reason)).
			WithExtension("column", coercionErr.Column).
			WithExtension("target", string(coercionErr.To))
	}

	var sheetErr *dataprocessing.SheetSelectionError
	if errors.As(err, &sheetErr) {
		return apierrors.SheetRequiredError(sheetErr.Sheets)
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return apierrors.ErrSessionNotFound
	case errors.Is(err, services.ErrTooManySessions):
		return apierrors.ErrTooManySessions
	case errors.Is(err, services.ErrServiceStopped):
		return apierrors.ErrServiceUnavailable
	case errors.Is(err, services.ErrInvalidInput):
		return apierrors.NewValidationError(err.Error())

	case errors.Is(err, dataprocessing.ErrColumnNotFound):
		if column == "" {
			return apierrors.ErrColumnNotFound.WithMessage(err.Error())
		}
		return apierrors.ColumnNotFoundError(column)
	case errors.Is(err, dataprocessing.ErrNotNumeric):
		return apierrors.ErrNotNumeric.WithMessage(err.Error()).
			WithExtension("column", column)
	case errors.Is(err, dataprocessing.ErrNoData):
		return apierrors.ErrUnprocessableEntity.WithMessage(err.Error()).
			WithExtension("column", column)
	case errors.Is(err, dataprocessing.ErrUnsupportedTarget):
		return apierrors.ErrConversionFailed.WithMessage(err.Error())
	case errors.Is(err, dataprocessing.ErrInvalidBins):
		return apierrors.ErrValidation("bins", err.Error())
	case errors.Is(err, dataprocessing.ErrUnknownAggregation):
		return apierrors.ErrValidation("agg", err.Error())
	case errors.Is(err, dataprocessing.ErrUnknownStrategy):
		return apierrors.ErrValidation("strategy", err.Error())
	case errors.Is(err, dataprocessing.ErrSheetNotFound):
		return apierrors.ErrNotFound.WithMessage(err.Error())
	}

	return uploadError(err)
}

// uploadError maps file validation and parsing errors.
func uploadError(err error) error {
	switch {
	case errors.Is(err, validation.ErrFileTooLarge):
		return apierrors.ErrPayloadTooLarge.WithMessage(err.Error())
	case errors.Is(err, validation.ErrExtensionNotAllowed), errors.Is(err, dataprocessing.ErrUnsupportedFormat):
		return apierrors.ErrUnsupportedMediaType.WithMessage(err.Error())
	case errors.Is(err, validation.ErrEmptyFile), errors.Is(err, validation.ErrMissingFilename):
		return apierrors.ErrValidation("file", err.Error())
	case errors.Is(err, dataprocessing.ErrEmptyInput):
		return apierrors.UnreadableFileError(err)
	}
	return err
}
