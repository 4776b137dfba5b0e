package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// FinanceCalculationRequest is the body of a finance agreement calculation.
// Fields are accepted as sent; nothing is range-checked.
type FinanceCalculationRequest struct {
	CustomerID      string  `json:"customerId"`
	VehicleID       string  `json:"vehicleId"`
	MaxInterestRate float64 `json:"maxInterestRate"`
	DownPayment     float64 `json:"downPayment"`
	Years           int     `json:"years"`
}

// UnmarshalJSON accepts any integral JSON number for years, so 3.0 and 1e2
// bind the same way 3 and 100 do.
func (r *FinanceCalculationRequest) UnmarshalJSON(data []byte) error {
	type plain FinanceCalculationRequest
	aux := struct {
		*plain
		Years *json.Number `json:"years"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Years == nil {
		return nil
	}

	years, err := integralNumber(*aux.Years)
	if err != nil {
		return fmt.Errorf("years: %w", err)
	}
	r.Years = years
	return nil
}

func integralNumber(n json.Number) (int, error) {
	if i, err := n.Int64(); err == nil && i >= math.MinInt32 && i <= math.MaxInt32 {
		return int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%s is not a 32-bit integer", n.String())
	}
	return int(f), nil
}

// FinanceOffer describes a proposed loan for a vehicle purchase.
type FinanceOffer struct {
	FinalCarPrice        float64 `json:"finalCarPrice"`
	AdjustedInterestRate float64 `json:"adjustedInterestRate"`
	MonthlyPayment       float64 `json:"monthlyPayment"`
	LoanTermMonths       int     `json:"loanTermMonths"`
	TotalFinancingCost   float64 `json:"totalFinancingCost"`
}

// FinanceCalculationResponse wraps the single recommended offer.
type FinanceCalculationResponse struct {
	RecommendedFinanceOffer *FinanceOffer `json:"recommendedFinanceOffer"`
}
