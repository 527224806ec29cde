package credstore

import "errors"

var (
	ErrNotFound          = errors.New("credstore: not found")
	ErrDuplicateUsername = errors.New("credstore: username already exists")
	ErrDuplicateToken    = errors.New("credstore: token already exists")
)

type (
	UnsupportedDialect struct {
		Dialect Dialect
	}
)

func (u UnsupportedDialect) Error() string {
	return "credstore: unsupported dialect " + string(u.Dialect)
}
