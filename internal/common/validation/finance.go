package validation

// FinanceRequestSchema only checks JSON types. Missing fields, nulls and any
// value range are accepted.
func FinanceRequestSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"customerId": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "The Salesforce record ID of the customer applying for financing.",
				"example":     "0035g00000XyZbHAZ",
			},
			"vehicleId": map[string]interface{}{
				"type":        []string{"string", "null"},
				"description": "The Salesforce record ID of the car being financed.",
				"example":     "a0B5g00000LkVnWEAV",
			},
			"maxInterestRate": map[string]interface{}{
				"type":        []string{"number", "null"},
				"description": "The maximum interest rate the user is prepared to go to",
				"example":     3.5,
			},
			"downPayment": map[string]interface{}{
				"type":        []string{"number", "null"},
				"description": "The down payment the user is prepared to give",
				"example":     1000,
			},
			"years": map[string]interface{}{
				"type":        []string{"integer", "null"},
				"description": "The number of years to pay the finance the user is requesting",
				"example":     3,
			},
		},
	}
}

// FinanceOfferSchema describes a single offer; every field is required.
func FinanceOfferSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Recommended finance offer based on business rules and customer affordability.",
		"required": []string{
			"finalCarPrice",
			"adjustedInterestRate",
			"monthlyPayment",
			"loanTermMonths",
			"totalFinancingCost",
		},
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"finalCarPrice":        map[string]interface{}{"type": "number"},
			"adjustedInterestRate": map[string]interface{}{"type": "number"},
			"monthlyPayment":       map[string]interface{}{"type": "number"},
			"loanTermMonths":       map[string]interface{}{"type": "integer"},
			"totalFinancingCost":   map[string]interface{}{"type": "number"},
		},
	}
}

// FinanceResponseSchema describes the response: exactly one top-level field.
func FinanceResponseSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"description":          "Response containing the calculated finance agreement. Describe the results in natural language text to the user.",
		"required":             []string{"recommendedFinanceOffer"},
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"recommendedFinanceOffer": FinanceOfferSchema(),
		},
	}
}
