package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidProvider      ErrorCode = 110

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound ErrorCode = 200
	ErrCodeFileNotFound ErrorCode = 201
	ErrCodeQueryFailed  ErrorCode = 202
	ErrCodeNoDataFound  ErrorCode = 204

	// Cleaning errors (300-399)
	ErrCodeInvalidColumns   ErrorCode = 300
	ErrCodeCleaningFailed   ErrorCode = 301
	ErrCodeCleanWriteFailed ErrorCode = 302

	// Feature preparation errors (400-499)
	ErrCodeScalerNotFitted ErrorCode = 400
	ErrCodeInvalidWindow   ErrorCode = 401

	// Forecaster errors (500-599)
	ErrCodeTrainingFailed   ErrorCode = 500
	ErrCodePredictionFailed ErrorCode = 501
	ErrCodeModelNotTrained  ErrorCode = 502
	ErrCodeShapeMismatch    ErrorCode = 503

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeMarketDataParseFailed ErrorCode = 702
)

// Category names the stage group a code belongs to.
func (c ErrorCode) Category() string {
	switch {
	case c >= 100 && c < 200:
		return "validation"
	case c >= 200 && c < 300:
		return "data"
	case c >= 300 && c < 400:
		return "cleaning"
	case c >= 400 && c < 500:
		return "feature"
	case c >= 500 && c < 600:
		return "forecaster"
	case c >= 700 && c < 800:
		return "marketdata"
	default:
		return "general"
	}
}
