package finance

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"finance-agreements/internal/common/errors"
	"finance-agreements/internal/common/logger"
	"finance-agreements/internal/common/observability"
	"finance-agreements/internal/common/salesforce"
	"finance-agreements/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Telemetry is the tracing and CRM-metrics surface the service reports to.
type Telemetry interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordCRMQuery(ctx context.Context, object string, duration time.Duration, outcome string)
}

type ServiceDependencies struct {
	Logger    logger.Logger
	Telemetry Telemetry
}

type Service struct {
	logger    logger.Logger
	telemetry Telemetry
}

func NewService(deps ServiceDependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		logger:    log,
		telemetry: deps.Telemetry,
	}
}

// BuildVehicleQuery returns the SOQL used to read a vehicle. vehicleID is
// inserted verbatim, quotes included.
func BuildVehicleQuery(vehicleID string) string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE Id = '%s' ",
		strings.Join(models.VehicleFields, ", "),
		models.VehicleModelObject,
		vehicleID,
	)
}

// RecommendedOffer is the offer returned for every request.
func RecommendedOffer() *models.FinanceOffer {
	return &models.FinanceOffer{
		FinalCarPrice:        41800,
		AdjustedInterestRate: 3.4,
		MonthlyPayment:       690.50,
		LoanTermMonths:       60,
		TotalFinancingCost:   41430.00,
	}
}

// CalculateFinanceAgreement reads the vehicle from the CRM and returns the
// recommended offer. The vehicle record does not influence the offer.
func (s *Service) CalculateFinanceAgreement(ctx context.Context, conn salesforce.Connection, req *models.FinanceCalculationRequest) (*models.FinanceCalculationResponse, error) {
	if req == nil {
		req = &models.FinanceCalculationRequest{}
	}

	if conn == nil {
		return nil, errors.NewCRMConnectionMissingError()
	}

	soql := BuildVehicleQuery(req.VehicleID)

	s.logger.Debug("Querying vehicle", map[string]interface{}{
		"customerId": req.CustomerID,
		"vehicleId":  req.VehicleID,
	})

	result, err := s.queryVehicle(ctx, conn, soql)
	if err != nil {
		s.logger.Error("Vehicle query failed", map[string]interface{}{
			"vehicleId": req.VehicleID,
			"error":     err.Error(),
		})
		if stderrors.Is(err, salesforce.ErrAuthentication) {
			return nil, errors.NewCRMAuthenticationFailedError(err)
		}
		return nil, errors.NewCRMQueryFailedError(models.VehicleModelObject, err)
	}

	s.logger.Info("Finance agreement calculated", map[string]interface{}{
		"customerId":      req.CustomerID,
		"vehicleId":       req.VehicleID,
		"vehicleRecords":  result.TotalSize,
		"loanTermMonths":  RecommendedOffer().LoanTermMonths,
		"requestedYears":  req.Years,
		"maxInterestRate": req.MaxInterestRate,
	})

	return &models.FinanceCalculationResponse{
		RecommendedFinanceOffer: RecommendedOffer(),
	}, nil
}

func (s *Service) queryVehicle(ctx context.Context, conn salesforce.Connection, soql string) (*salesforce.QueryResult, error) {
	span := trace.Span(noop.Span{})
	if s.telemetry != nil {
		ctx, span = s.telemetry.StartSpan(ctx, "salesforce.query",
			attribute.String("crm.object", models.VehicleModelObject),
		)
	}

	start := time.Now()
	result, err := conn.Query(ctx, soql)
	duration := time.Since(start)
	observability.EndSpan(span, err)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	if s.telemetry != nil {
		s.telemetry.RecordCRMQuery(ctx, models.VehicleModelObject, duration, outcome)
	}

	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &salesforce.QueryResult{}
	}
	return result, nil
}
