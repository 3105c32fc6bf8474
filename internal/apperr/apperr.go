// Package apperr classifies pipeline failures so callers can tell bad input
// apart from infrastructure trouble and report which stage failed.
package apperr

import "errors"

type Category string

const (
	CategoryInvalidInput   Category = "invalid_input"
	CategoryNotFound       Category = "not_found"
	CategoryUnauthorized   Category = "unauthorized"
	CategoryConflict       Category = "conflict"
	CategoryRateLimited    Category = "rate_limited"
	CategoryInfrastructure Category = "infrastructure"
	CategoryFatal          Category = "fatal"
)

// Stage names the pipeline step that produced an error.
type Stage string

const (
	StageCatalog  Stage = "catalog"
	StageAssemble Stage = "assemble"
	StageBarcode  Stage = "barcode"
	StageAssets   Stage = "assets"
	StageSign     Stage = "sign"
	StagePackage  Stage = "package"
	StageRegistry Stage = "registry"
	StageNotify   Stage = "notify"
)

// Error is a classified failure. Message is safe to show to API clients;
// the wrapped cause is for logs only.
type Error struct {
	Category Category
	Stage    Stage
	Code     string
	Message  string
	cause    error
}

func (e *Error) Error() string {
	msg := string(e.Stage) + ": " + e.Code
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether repeating the identical request may succeed.
func (e *Error) Retryable() bool {
	return e.Category == CategoryInfrastructure || e.Category == CategoryRateLimited
}

func New(category Category, stage Stage, code, message string) error {
	return &Error{Category: category, Stage: stage, Code: code, Message: message}
}

func Wrap(cause error, category Category, stage Stage, code, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Category: category, Stage: stage, Code: code, Message: message, cause: cause}
}

func Invalid(stage Stage, code, message string) error {
	return New(CategoryInvalidInput, stage, code, message)
}

func Infra(cause error, stage Stage, code, message string) error {
	return Wrap(cause, CategoryInfrastructure, stage, code, message)
}

func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// CategoryOf returns the category of the first classified error in the
// chain, or the empty category for unclassified errors.
func CategoryOf(err error) Category {
	if ae, ok := As(err); ok {
		return ae.Category
	}
	return ""
}

func StageOf(err error) Stage {
	if ae, ok := As(err); ok {
		return ae.Stage
	}
	return ""
}
