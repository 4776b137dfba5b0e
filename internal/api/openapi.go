package api

import (
	"finance-agreements/internal/common/config"
	"finance-agreements/internal/common/validation"
)

const financeTag = "Finance Agreement Calculation"

// OpenAPIDocument describes the public API in OpenAPI 3 form.
func OpenAPIDocument(app config.AppConfig) map[string]interface{} {
	return map[string]interface{}{
		"openapi": "3.0.1",
		"info": map[string]interface{}{
			"title":   app.Name,
			"version": app.Version,
		},
		"tags": []interface{}{
			map[string]interface{}{
				"name":        financeTag,
				"description": "Calculates finance agreements for a vehicle purchase",
			},
		},
		"paths": map[string]interface{}{
			CalculateFinanceAgreementPath: map[string]interface{}{
				"post": calculateFinanceAgreementOperation(),
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"FinanceCalculationRequest":  requestSchema(),
				"FinanceCalculationResponse": validation.FinanceResponseSchema(),
				"FinanceOffer":               validation.FinanceOfferSchema(),
			},
		},
	}
}

func calculateFinanceAgreementOperation() map[string]interface{} {
	return map[string]interface{}{
		"tags":        []string{financeTag},
		"operationId": "calculateFinanceAgreement",
		"summary":     "Calculate a finance agreement",
		"description": "Calculates a finance agreement for a vehicle purchase based on the customer's profile and the vehicle's information.",
		"requestBody": map[string]interface{}{
			"required":    true,
			"description": "Request to compute a finance agreement for a car purchase, including the Salesforce record ID of both the customer applying for financing and the vehicle being financed.",
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{
					"schema": map[string]interface{}{"$ref": "#/components/schemas/FinanceCalculationRequest"},
				},
			},
		},
		"responses": map[string]interface{}{
			"200": map[string]interface{}{
				"description": "Response containing the calculated finance agreement.",
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]interface{}{"$ref": "#/components/schemas/FinanceCalculationResponse"},
					},
				},
			},
			"400": map[string]interface{}{"description": "The request body is not valid JSON or has fields of the wrong type."},
			"500": map[string]interface{}{"description": "The vehicle could not be read from Salesforce."},
		},
	}
}

// requestSchema is the request schema with the JSON Schema null unions
// collapsed to the plain OpenAPI 3.0 types.
func requestSchema() map[string]interface{} {
	schema := validation.FinanceRequestSchema()
	schema["description"] = "Request to compute a finance agreement for a car purchase, including the Salesforce record ID of both the customer applying for financing and the vehicle being financed."
	props := schema["properties"].(map[string]interface{})
	for name, raw := range props {
		prop := raw.(map[string]interface{})
		if types, ok := prop["type"].([]string); ok && len(types) > 0 {
			prop["type"] = types[0]
			prop["nullable"] = true
		}
		if name == "maxInterestRate" || name == "downPayment" {
			prop["format"] = "double"
		}
		if name == "years" {
			prop["format"] = "int32"
		}
	}
	return schema
}
