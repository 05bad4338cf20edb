package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// invalid_text_representation, raised for malformed uuid literals.
const pqInvalidTextRepresentation = "22P02"

// normalizeLookupErr maps malformed identifiers to sql.ErrNoRows so callers
// see a plain not-found.
func normalizeLookupErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation {
		return sql.ErrNoRows
	}
	return err
}
