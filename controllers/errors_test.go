package controllers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"Gin_postgres_redis_asset_lending/lending"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_RespondError_MapsKindsToStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &Srv{Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "validation",
			err:     lending.ErrInvalidBarcodeFormat,
			status:  http.StatusBadRequest,
			code:    "InvalidBarcodeFormat",
			message: lending.ErrInvalidBarcodeFormat.Message,
		},
		{
			name:    "business_rule",
			err:     lending.ErrSelfArchive,
			status:  http.StatusBadRequest,
			code:    "SelfArchive",
			message: "Cannot archive your own account.",
		},
		{
			name:    "conflict_wrapped",
			err:     fmt.Errorf("create: %w", lending.ErrActiveLoanExists),
			status:  http.StatusConflict,
			code:    "ActiveLoanExists",
			message: lending.ErrActiveLoanExists.Message,
		},
		{
			name:    "not_found",
			err:     lending.ErrLoanNotFound,
			status:  http.StatusNotFound,
			code:    "LoanNotFound",
			message: lending.ErrLoanNotFound.Message,
		},
		{
			name:    "persistence_hides_detail",
			err:     lending.ErrArchiveOperationFailed,
			status:  http.StatusInternalServerError,
			code:    "ArchiveOperationFailed",
			message: "internal error",
		},
		{
			name:    "foreign_error",
			err:     errors.New("connection reset by peer"),
			status:  http.StatusInternalServerError,
			code:    "PersistenceFailure",
			message: "internal error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			s.respondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body map[string]string
			require.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body["code"])
			assert.Equal(t, tc.message, body["error"])
		})
	}
}

func Test_ParseDay_AcceptsBothLayouts(t *testing.T) {
	dashed, err := parseDay("2025-03-04")
	require.NoError(t, err)
	compact, err := parseDay("20250304")
	require.NoError(t, err)

	assert.True(t, dashed.Equal(compact))

	_, err = parseDay("04/03/2025")
	assert.Error(t, err)
}
