package batch

import "errors"

var (
	ErrUnsupportedLanguagePair = errors.New("unsupported language pair")
	ErrBatchTooLarge           = errors.New("batch too large")
	ErrEmptyBatch              = errors.New("empty batch")
	ErrEmptyText               = errors.New("empty text")
	ErrTextTooLong             = errors.New("text too long")
)

// ValidationError rejects a request before any cache or backend call.
type ValidationError struct {
	Err error
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, msg string) error {
	return &ValidationError{Err: err, Msg: msg}
}
