package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrStorage  = errors.New("storage error")
)

// StorageError - ошибка ввода-вывода хранилища курсов.
// errors.Is(err, ErrStorage) срабатывает для любой операции.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Wrap - заворачивает ошибку драйвера в StorageError; nil остаётся nil
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
