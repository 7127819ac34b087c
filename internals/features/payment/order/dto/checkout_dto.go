package dto

type CheckoutRequest struct {
	CustomerEmail string  `json:"customer_email" validate:"required,email"`
	TotalAmount   float64 `json:"total_amount" validate:"required,gt=0"`
	CallbackURL   string  `json:"callback_url" validate:"omitempty,url"`
}

type CheckoutResponse struct {
	OrderNumber      string  `json:"order_number"`
	PaymentReference string  `json:"payment_reference"`
	TotalAmount      float64 `json:"total_amount"`
	AuthorizationURL string  `json:"authorization_url"`
}
