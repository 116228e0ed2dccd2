package repositories

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound 는 조건에 맞는 문서가 없을 때 반환된다.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate 는 unique 인덱스 위반이다.
	ErrDuplicate = errors.New("duplicate document")
)

// translate maps driver errors onto package sentinels, keeping the cause.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %v", op, ErrDuplicate, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
