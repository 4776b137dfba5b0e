package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	messages []string
	fields   []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.messages = append(l.messages, msg)
	l.fields = append(l.fields, fields)
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeCRMQueryFailed, http.StatusInternalServerError},
		{ErrCodeCRMConnectionMissing, http.StatusInternalServerError},
		{ErrCodeCRMAuthenticationFailed, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeCRMContextInvalid, http.StatusUnauthorized},
		{ErrCodeInvalidRequestBody, http.StatusBadRequest},
		{ErrCodeRateLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{ErrCodeNotFound, http.StatusNotFound},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, ToHTTPStatus(tt.code))
		})
	}
}

func TestNormalize(t *testing.T) {
	crmErr := NewCRMQueryFailedError("Vehicle_Model__c", fmt.Errorf("connection reset"))
	wrapped := fmt.Errorf("calculate: %w", crmErr)

	assert.Same(t, crmErr, Normalize(wrapped))

	plain := stderrors.New("boom")
	normalized := Normalize(plain)
	assert.Equal(t, ErrCodeInternal, normalized.Code)
	assert.ErrorIs(t, normalized, plain)
}

func TestCRMQueryFailedError_NotRetryable(t *testing.T) {
	cause := fmt.Errorf("dial tcp: i/o timeout")
	stdErr := NewCRMQueryFailedError("Vehicle_Model__c", cause)

	assert.False(t, stdErr.Retryable)
	assert.ErrorIs(t, stdErr, cause)
	assert.Contains(t, stdErr.Details, "Vehicle_Model__c")

	bpmnErr := ConvertToBPMNError(stdErr)
	assert.Equal(t, "CRM_QUERY_FAILED", bpmnErr.Code)
	assert.Equal(t, 0, bpmnErr.Retries)

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "CRM_QUERY_FAILED", vars["errorCode"])
	assert.Equal(t, "CRM_QUERY_FAILED", vars["originalErrorCode"])
	assert.Equal(t, false, vars["retryable"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "CRM", GetErrorCategory(ErrCodeCRMQueryFailed))
	assert.Equal(t, "CRM", GetErrorCategory(ErrCodeCRMContextInvalid))
	assert.Equal(t, "RATE_LIMIT", GetErrorCategory(ErrCodeRateLimitExceeded))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidRequestBody))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}

func TestWriteHTTPError_ServerErrorHidesDetails(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	req := httptest.NewRequest(http.MethodPost, "/api/calculateFinanceAgreement", nil)
	rec := httptest.NewRecorder()

	h.WriteHTTPError(rec, req, "req-42", NewCRMQueryFailedError("Vehicle_Model__c", fmt.Errorf("INVALID_QUERY_FILTER_OPERATOR")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotContains(t, rec.Body.String(), "INVALID_QUERY_FILTER_OPERATOR")
	assert.NotContains(t, rec.Body.String(), "recommendedFinanceOffer")

	var body HTTPErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeCRMQueryFailed, body.Error.Code)
	assert.Equal(t, "Internal Server Error", body.Error.Message)
	assert.Equal(t, "req-42", body.Error.RequestID)

	require.Len(t, log.messages, 1)
	assert.Equal(t, "CRM", log.fields[0]["errorCategory"])
	assert.Contains(t, log.fields[0]["details"], "INVALID_QUERY_FILTER_OPERATOR")
}

func TestWriteHTTPError_ClientErrorKeepsMessage(t *testing.T) {
	h := NewErrorHandler(&recordingLogger{})

	req := httptest.NewRequest(http.MethodPost, "/api/calculateFinanceAgreement", nil)
	rec := httptest.NewRecorder()

	h.WriteHTTPError(rec, req, "", NewInvalidRequestBodyError("unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body HTTPErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid request body", body.Error.Message)
	assert.Empty(t, body.Error.RequestID)
}
