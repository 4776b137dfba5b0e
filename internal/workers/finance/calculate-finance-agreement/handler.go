package calculatefinanceagreement

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finance-agreements/internal/common/config"
	"finance-agreements/internal/common/errors"
	"finance-agreements/internal/common/logger"
	"finance-agreements/internal/common/metrics"
	"finance-agreements/internal/common/salesforce"
	"finance-agreements/internal/common/validation"
	"finance-agreements/internal/finance"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType   = "finance.agreement.calculate"
	WorkerName = "finance-agreement-calculate"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	service      *finance.Service
	connection   salesforce.Connection
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Service      *finance.Service
	// Connection is the integration-user connection; jobs carry no org context.
	Connection salesforce.Connection
	Logger     logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}

	service := opts.Service
	if service == nil {
		service = finance.NewService(finance.ServiceDependencies{Logger: loggerInstance})
	}

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		service:      service,
		connection:   opts.Connection,
		errorHandler: errors.NewErrorHandler(loggerInstance),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing finance agreement calculation", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute runs the calculation against the integration-user connection.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	resp, err := h.service.CalculateFinanceAgreement(ctx, h.connection, input)
	if err != nil {
		return nil, err
	}
	return &Output{RecommendedFinanceOffer: resp.RecommendedFinanceOffer}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := job.GetVariables()
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	result, err := validation.ValidateJSON(validation.FinanceRequestSchema(), []byte(raw))
	if err != nil {
		return nil, errors.NewInvalidRequestBodyError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidRequestBodyError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, errors.NewInvalidRequestBodyError(err.Error())
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.Variables())
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	h.logger.Info("Completed finance agreement calculation", map[string]interface{}{
		"jobKey": job.GetKey(),
		"worker": TaskType,
	})
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

// WorkerConfig returns the settings used to open the job worker.
func (h *Handler) WorkerConfig() config.WorkerConfig {
	return config.WorkerConfig{
		Enabled:       h.config.Enabled,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       int(h.config.Timeout / time.Millisecond),
	}
}

func extractErrorCode(err error) string {
	return string(errors.Normalize(err).Code)
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[WorkerName]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
			}
		}
	}

	return cfg
}
