package models

// ActivitySample is one pickup's contribution to a material's market signal
// within the pricing window. Quantity is the sum of the pickup's line items
// for that material.
type ActivitySample struct {
	PickupID         string       `json:"pickupId"`
	Quantity         float64      `json:"quantity"`
	Status           PickupStatus `json:"status"`
	HasClaimRequests bool         `json:"hasClaimRequests"`
}
