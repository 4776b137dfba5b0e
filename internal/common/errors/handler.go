package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler renders errors for both transports: HTTP responses and
// workflow job failures.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HTTPErrorBody is the JSON body returned for every failed API call.
type HTTPErrorBody struct {
	Error HTTPErrorDetail `json:"error"`
}

type HTTPErrorDetail struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"requestId,omitempty"`
}

// WriteHTTPError logs err and writes a generic error body. Server errors never
// carry the underlying details to the caller.
func (h *ErrorHandler) WriteHTTPError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	stdErr := Normalize(err)
	status := ToHTTPStatus(stdErr.Code)

	h.logger.Error("Request failed", map[string]interface{}{
		"method":        r.Method,
		"path":          r.URL.Path,
		"status":        status,
		"requestId":     requestID,
		"errorCode":     string(stdErr.Code),
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})

	message := stdErr.Message
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorBody{
		Error: HTTPErrorDetail{
			Code:      stdErr.Code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

// HandleJobError fails a workflow job with the BPMN form of err.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":           job.GetKey(),
		"jobType":          job.GetType(),
		"errorCode":        bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        bpmnErr.Retryable,
		"retries":          bpmnErr.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.GetProcessInstanceKey(),
	})

	failCmd := client.NewFailJobCommand().
		JobKey(job.GetKey()).
		Retries(int32(bpmnErr.Retries)).
		ErrorMessage(fmt.Sprintf("[%s] %s", bpmnErr.Code, bpmnErr.Message))

	varCmd, varErr := failCmd.VariablesFromMap(bpmnErr.ToErrorVariables())
	if varErr != nil {
		h.logger.Error("Failed to set error variables, sending without them", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  varErr.Error(),
		})
		if _, sendErr := failCmd.Send(ctx); sendErr != nil {
			h.logFailSend(job, sendErr)
		}
		return
	}

	if _, sendErr := varCmd.Send(ctx); sendErr != nil {
		h.logFailSend(job, sendErr)
	}
}

func (h *ErrorHandler) logFailSend(job entities.Job, err error) {
	h.logger.Error("Failed to send job failure", map[string]interface{}{
		"jobKey": job.GetKey(),
		"error":  err.Error(),
	})
}
