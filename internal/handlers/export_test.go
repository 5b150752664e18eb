package handlers

// Aliases exposing request payload types to the external handlers_test
// package. Compiled only for tests.
type (
	CreateOrderRequest   = createOrderRequest
	CreateProductRequest = createProductRequest
	CreateReviewRequest  = createReviewRequest
)
