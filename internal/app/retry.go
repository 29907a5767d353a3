package app

import "applybot/internal/common"

// Storage I/O failures are retried once transparently; business-rule errors
// never are.
func retryStorage[T any](fn func() (T, error)) (T, error) {
	value, err := fn()
	if err != nil && common.Is(err, common.CodeStorage) {
		return fn()
	}
	return value, err
}

func retryStorageErr(fn func() error) error {
	err := fn()
	if err != nil && common.Is(err, common.CodeStorage) {
		return fn()
	}
	return err
}
