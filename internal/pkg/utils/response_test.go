package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/remlyo/remlyo/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDenied(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, WriteDenied(rr, "Free limit reached", "upgrade"))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "upgrade", body["required"])
	assert.Equal(t, "Free limit reached", body["message"])
	assert.NotContains(t, body, "error")
}

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "app error kept", err: errors.NotFound("Active subscription"), wantStatus: http.StatusNotFound, wantCode: errors.ErrCodeNotFound},
		{name: "plain error wrapped", err: fmt.Errorf("connection reset"), wantStatus: http.StatusInternalServerError, wantCode: errors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			require.NoError(t, WriteAppError(rr, tt.err, "Failed to load subscription"))

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestWriteSuccessWithMessage(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, WriteSuccessWithMessage(rr, http.StatusOK, "Subscription cancelled successfully", nil))

	var body SuccessResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "Subscription cancelled successfully", body.Message)
	assert.Nil(t, body.Data)
}
