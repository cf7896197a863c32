package model

// Result carries either data or the reason it could not be produced.
type Result[T any] struct {
	value T
	err   error
}

func Ok[T any](v T) Result[T] { return Result[T]{value: v} }

func Err[T any](err error) Result[T] { return Result[T]{err: err} }

// Get returns the value and the error; exactly one is meaningful.
func (r Result[T]) Get() (T, error) { return r.value, r.err }

func (r Result[T]) IsOk() bool { return r.err == nil }

func (r Result[T]) Error() error { return r.err }

// ValueOr returns the value, or fallback when the result is an error.
func (r Result[T]) ValueOr(fallback T) T {
	if r.err != nil {
		return fallback
	}
	return r.value
}
