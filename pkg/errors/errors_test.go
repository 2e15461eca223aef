package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := Wrap(sql.ErrNoRows, ErrNotFound.Code, ErrNotFound.Status, "group not found")
	got := FromError(wrapped)
	assert.Same(t, wrapped, got)
	assert.True(t, errors.Is(got, sql.ErrNoRows))
	assert.Equal(t, "group not found: sql: no rows in result set", got.Error())
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneOverridesMessageOnly(t *testing.T) {
	clone := Clone(ErrUnknownPartial, "partial p4 is not supported")
	assert.Equal(t, ErrUnknownPartial.Code, clone.Code)
	assert.Equal(t, "partial p4 is not supported", clone.Message)
	assert.Equal(t, "partial must be one of p1, p2, p3", ErrUnknownPartial.Message)
	assert.Nil(t, Clone(nil, "x"))
}
