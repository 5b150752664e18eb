package mpesa

// CallbackPayload is the asynchronous notification the gateway posts to the
// callback endpoint after an STK push.
type CallbackPayload struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string  `json:"MerchantRequestID"`
			CheckoutRequestID string  `json:"CheckoutRequestID"`
			ResultCode        int     `json:"ResultCode"`
			ResultDesc        string  `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// Succeeded reports whether the gateway confirmed the payment.
func (p *CallbackPayload) Succeeded() bool {
	return p.Body.StkCallback.ResultCode == 0
}
