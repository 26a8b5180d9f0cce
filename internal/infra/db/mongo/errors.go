package mongo

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"staybook/internal/domain/shared/errs"
)

// writeConflict is the server code for a transaction write conflict.
const writeConflict = 112

// classify maps driver failures onto error kinds. Write conflicts mean another
// unit touched the same document first.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConflict(err) {
		return errs.ErrConcurrentUpdate
	}
	return errs.Unavailable("mongo: "+op, err)
}

func isConflict(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(writeConflict) || se.HasErrorLabel("TransientTransactionError") {
			return true
		}
	}
	return false
}

// duplicateOn reports whether err is a duplicate key violation of the named index.
func duplicateOn(err error, index string) bool {
	if !mongo.IsDuplicateKeyError(err) {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if strings.Contains(e.Message, index) {
				return true
			}
		}
	}
	return false
}
