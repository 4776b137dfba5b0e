package calculatefinanceagreement

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"finance-agreements/internal/common/config"
	"finance-agreements/internal/common/errors"
	"finance-agreements/internal/common/logger"
	"finance-agreements/internal/common/salesforce"
	"finance-agreements/internal/finance"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks & helpers
// ==========================

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Query(ctx context.Context, soql string) (*salesforce.QueryResult, error) {
	args := m.Called(ctx, soql)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesforce.QueryResult), args.Error(1)
}

func createMockJob(key int64, variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "car-finance",
		ElementId:          "Activity_CalculateFinanceAgreement",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          variables,
	}}
}

func newTestHandler(t *testing.T, conn salesforce.Connection) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Connection:   conn,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

// ==========================
// Construction
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr string
		check   func(t *testing.T, h *Handler)
	}{
		{
			name: "defaults",
			opts: HandlerOptions{},
			check: func(t *testing.T, h *Handler) {
				assert.True(t, h.IsEnabled())
				assert.Equal(t, 5, h.GetConfig().MaxJobsActive)
				assert.Equal(t, 30*time.Second, h.GetConfig().Timeout)
			},
		},
		{
			name: "from app config",
			opts: HandlerOptions{AppConfig: &config.Config{Workers: map[string]config.WorkerConfig{
				WorkerName: {Enabled: false, MaxJobsActive: 12, Timeout: 5000},
			}}},
			check: func(t *testing.T, h *Handler) {
				assert.False(t, h.IsEnabled())
				assert.Equal(t, config.WorkerConfig{Enabled: false, MaxJobsActive: 12, Timeout: 5000}, h.WorkerConfig())
			},
		},
		{
			name:    "invalid timeout",
			opts:    HandlerOptions{CustomConfig: &Config{Enabled: true, MaxJobsActive: 1}},
			wantErr: "timeout must be positive",
		},
		{
			name:    "invalid max jobs",
			opts:    HandlerOptions{CustomConfig: &Config{Enabled: true, Timeout: time.Second}},
			wantErr: "max_jobs_active must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.opts.Logger == nil {
				tt.opts.Logger = logger.NewTestLogger(t)
			}
			h, err := NewHandler(tt.opts)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskType, h.GetTaskType())
			tt.check(t, h)
		})
	}
}

// ==========================
// Input parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, nil)

	input, err := h.parseInput(createMockJob(1, `{"customerId":"0035g00000XyZbHAZ","vehicleId":"a0B5g00000LkVnWEAV","maxInterestRate":3.5,"downPayment":1000,"years":3,"otherVar":"ignored"}`))
	require.NoError(t, err)
	assert.Equal(t, "0035g00000XyZbHAZ", input.CustomerID)
	assert.Equal(t, "a0B5g00000LkVnWEAV", input.VehicleID)
	assert.Equal(t, 3.5, input.MaxInterestRate)
	assert.Equal(t, 1000.0, input.DownPayment)
	assert.Equal(t, 3, input.Years)

	input, err = h.parseInput(createMockJob(2, ""))
	require.NoError(t, err)
	assert.Empty(t, input.VehicleID)

	input, err = h.parseInput(createMockJob(3, `{"vehicleId":"a0B","years":5.0}`))
	require.NoError(t, err)
	assert.Equal(t, 5, input.Years)

	_, err = h.parseInput(createMockJob(4, `{"years":"three"}`))
	require.Error(t, err)
	assert.Equal(t, "INVALID_REQUEST_BODY", extractErrorCode(err))
}

// ==========================
// Execution
// ==========================

func TestHandler_Execute(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, finance.BuildVehicleQuery("a0B5g00000LkVnWEAV")).
		Return(&salesforce.QueryResult{TotalSize: 1, Done: true}, nil).Once()

	h := newTestHandler(t, conn)
	output, err := h.Execute(context.Background(), &Input{VehicleID: "a0B5g00000LkVnWEAV"})

	require.NoError(t, err)
	assert.Equal(t, finance.RecommendedOffer(), output.RecommendedFinanceOffer)
	conn.AssertExpectations(t)
}

func TestHandler_ExecuteCRMFailureIsNotRetried(t *testing.T) {
	conn := new(MockConnection)
	conn.On("Query", mock.Anything, mock.Anything).Return(nil, stderrors.New("connection reset by peer")).Once()

	h := newTestHandler(t, conn)
	output, err := h.Execute(context.Background(), &Input{VehicleID: "a0B"})

	require.Error(t, err)
	assert.Nil(t, output)
	assert.Equal(t, "CRM_QUERY_FAILED", extractErrorCode(err))

	bpmnErr := errors.ConvertToBPMNError(errors.Normalize(err))
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, 0, bpmnErr.Retries)
	conn.AssertNumberOfCalls(t, "Query", 1)
}

func TestHandler_ExecuteWithoutConnection(t *testing.T) {
	h := newTestHandler(t, nil)
	_, err := h.Execute(context.Background(), &Input{VehicleID: "a0B"})

	require.Error(t, err)
	assert.Equal(t, "CRM_CONNECTION_MISSING", extractErrorCode(err))
}

func TestOutput_Variables(t *testing.T) {
	out := &Output{RecommendedFinanceOffer: finance.RecommendedOffer()}

	raw, err := json.Marshal(out.Variables())
	require.NoError(t, err)
	assert.JSONEq(t, `{"recommendedFinanceOffer":{"finalCarPrice":41800,"adjustedInterestRate":3.4,"monthlyPayment":690.5,"loanTermMonths":60,"totalFinancingCost":41430}}`, string(raw))
}

func TestExtractErrorCode(t *testing.T) {
	assert.Equal(t, "INTERNAL_ERROR", extractErrorCode(stderrors.New("boom")))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", extractErrorCode(errors.NewRateLimitExceededError("x")))
}
