package serverutils

import "fmt"

// ErrorKind classifies an AppError so the HTTP layer can pick a status
// without string matching.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindUnauthorized
	KindInvalidInput
	KindNotFound
	KindConfiguration
	KindProvider
)

// AppError is the error type services return to the controllers.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error // wrapped cause, optional
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewInvalidInput(message string) *AppError {
	return &AppError{Kind: KindInvalidInput, Message: message}
}

func NewNotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewConfiguration(message string) *AppError {
	return &AppError{Kind: KindConfiguration, Message: message}
}

func NewProvider(message string, cause error) *AppError {
	return &AppError{Kind: KindProvider, Message: message, Err: cause}
}

func NewInternal(message string, cause error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: cause}
}
