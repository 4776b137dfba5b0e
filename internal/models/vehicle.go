package models

import "encoding/json"

// VehicleModelObject is the CRM object queried for vehicle data.
const VehicleModelObject = "Vehicle_Model__c"

// VehicleFields lists the fields selected from Vehicle_Model__c, in query order.
var VehicleFields = []string{
	"Id",
	"Color__c",
	"Fuel_Type__c",
	"Make__c",
	"Mileage__c",
	"Model__c",
	"Price__c",
	"Status__c",
	"Year__c",
}

// Vehicle is a Vehicle_Model__c record as returned by the CRM.
type Vehicle struct {
	ID       string      `json:"Id"`
	Color    string      `json:"Color__c,omitempty"`
	FuelType string      `json:"Fuel_Type__c,omitempty"`
	Make     string      `json:"Make__c,omitempty"`
	Mileage  float64     `json:"Mileage__c,omitempty"`
	Model    string      `json:"Model__c,omitempty"`
	Price    float64     `json:"Price__c,omitempty"`
	Status   string      `json:"Status__c,omitempty"`
	Year     json.Number `json:"Year__c,omitempty"`
}
