package apperr

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", Validation(CodeInvalidDate, "bad date"), http.StatusBadRequest},
		{"unknown operator", New(KindNotFoundReference, CodeUnknownOperator, "x"), http.StatusBadRequest},
		{"bad parameter", New(KindBadParameter, CodeNotStationOp, "x"), http.StatusBadRequest},
		{"missing file", New(KindSourceUnavailable, CodeFileNotFound, "x"), http.StatusBadRequest},
		{"empty", ErrNoContent, http.StatusNoContent},
		{"auth", New(KindAuth, CodeUnauthorized, "x"), http.StatusUnauthorized},
		{"forbidden", New(KindForbidden, CodeForbidden, "x"), http.StatusForbidden},
		{"conflict", New(KindConflict, CodeImportInProgress, "x"), http.StatusConflict},
		{"storage", Storage(sql.ErrConnDone, "query failed"), http.StatusInternalServerError},
		{"rate limited", New(KindRateLimited, CodeTooManyRequests, "x"), http.StatusTooManyRequests},
		{"bare deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestWrap_DeadlineBecomesTimeout(t *testing.T) {
	err := Storage(fmt.Errorf("select: %w", context.DeadlineExceeded), "aggregation failed")

	require.NotNil(t, err)
	assert.Equal(t, KindTimeout, err.Kind)
	assert.Equal(t, CodeTimeout, err.Code)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWrap_NilCause(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindStorage, CodeDatabase, "x"))
}

func TestErrNoContent_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("charges by: %w", ErrNoContent)

	assert.True(t, errors.Is(err, ErrNoContent))
	assert.Equal(t, KindEmptyResult, KindOf(err))
	assert.Equal(t, CodeNoContent, CodeOf(err))
}

func TestMessageOf_HidesUnclassifiedDetail(t *testing.T) {
	assert.Equal(t, "internal error", MessageOf(errors.New("Error 1146: table missing")))
	assert.Equal(t, "bad date", MessageOf(Validation(CodeInvalidDate, "bad date")))
}

func TestError_StringIncludesCause(t *testing.T) {
	err := Storage(errors.New("deadlock"), "insert pass")
	assert.Equal(t, "insert pass: deadlock", err.Error())
	assert.NotEmpty(t, err.StackTrace())
}
