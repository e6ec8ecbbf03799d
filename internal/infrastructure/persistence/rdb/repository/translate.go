package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"txscope/internal/domain/member"
	"txscope/internal/errs"
)

// translate maps persistence errors onto domain errors. Errors it does not
// recognise are wrapped with op and returned as is.
func translate(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if notFound != nil {
			return errs.Wrap(notFound, op)
		}
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return errs.Wrap(errors.Join(member.ErrDuplicateMember, err), op)
	}
	return errs.Wrap(err, op)
}

// isUniqueViolation catches drivers that were opened without
// gorm.Config.TranslateError.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
