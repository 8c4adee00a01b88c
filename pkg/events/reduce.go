package events

import "errors"

// Reduce folds sub into an accumulator. It returns when the range ends, when
// reducer returns ErrCancelStream together with the final accumulator, or on
// the first stream error. The end of the stream's parent context is an error
// too. The subscription is always cancelled on return.
func Reduce[T, U any](sub *Subscription[T], reducer func(acc U, v T) (U, error), initial U) (U, error) {
	defer sub.Cancel()
	acc := initial
	for r := range sub.Results() {
		if r.Err != nil {
			if errors.Is(r.Err, ErrEndOfStream) {
				return acc, nil
			}
			return acc, r.Err
		}
		next, err := reducer(acc, r.Value)
		if errors.Is(err, ErrCancelStream) {
			return next, nil
		}
		if err != nil {
			return acc, err
		}
		acc = next
	}
	return acc, sub.Err()
}

// Read collects up to limit values; limit 0 means no limit.
func Read[T any](sub *Subscription[T], limit int) ([]T, error) {
	return Reduce(sub, func(acc []T, v T) ([]T, error) {
		acc = append(acc, v)
		if limit > 0 && len(acc) >= limit {
			return acc, ErrCancelStream
		}
		return acc, nil
	}, []T{})
}

// Iterate calls fn for each value until the range ends or fn returns an error.
// ErrCancelStream from fn stops iteration without an error.
func Iterate[T any](sub *Subscription[T], fn func(v T) error) error {
	_, err := Reduce(sub, func(_ struct{}, v T) (struct{}, error) {
		return struct{}{}, fn(v)
	}, struct{}{})
	return err
}
