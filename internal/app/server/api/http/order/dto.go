package order

import "vgsync/internal/domain/order"

type myOrdersInput struct{}

type myOrdersOutput struct {
	Body myOrdersResponse
}

type myOrdersResponse struct {
	Orders []order.Order `json:"orders"`
}
