package dto

// GenerateWorkOrderRequest is the body of POST /work-orders/generate.
// Month, year and delivery type are validated by the generator so errors name the field.
type GenerateWorkOrderRequest struct {
	Month        int    `json:"month"`
	Year         int    `json:"year"`
	DeliveryType string `json:"deliveryType"`
}

// PeriodQuery selects a work order period from query parameters.
type PeriodQuery struct {
	Month        int    `form:"month"`
	Year         int    `form:"year"`
	DeliveryType string `form:"deliveryType"`
}

// UpdateWorkOrderStatusRequest is the body of PATCH /work-orders/:id/status.
type UpdateWorkOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
