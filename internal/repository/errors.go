package repository

import (
	"errors"
	"fmt"

	"banco/internal/bizerror"

	"gorm.io/gorm"
)

// translate turns store errors into the domain taxonomy and keeps the original text for logs
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return bizerror.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", bizerror.ErrDuplicateName, err)
	}
	return err
}

func likePattern(search string) string {
	return "%" + escapeLike(search) + "%"
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
