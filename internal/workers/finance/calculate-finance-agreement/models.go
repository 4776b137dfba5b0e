package calculatefinanceagreement

import "finance-agreements/internal/models"

// Input is read from the process variables of the same names as the HTTP
// request body.
type Input = models.FinanceCalculationRequest

type Output struct {
	RecommendedFinanceOffer *models.FinanceOffer
}

// Variables returns the process variables the job is completed with.
func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"recommendedFinanceOffer": o.RecommendedFinanceOffer,
	}
}
