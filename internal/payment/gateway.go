package payment

import (
	"context"
)

// CheckoutRequest carries what the gateway needs to start a claim payment.
type CheckoutRequest struct {
	StarID   string
	UserID   string
	StarName string
}

// Session is the started payment session the client gets redirected to.
type Session struct {
	ID  string `json:"sessionId"`
	URL string `json:"checkoutUrl"`
}

// CompletedPayment is a successful payment event delivered by the gateway.
// Delivery is at-least-once; consumers must tolerate duplicates.
type CompletedPayment struct {
	SessionID  string
	StarID     string
	UserID     string
	StarName   string
	PayerEmail string
	PayerName  string
}

// Gateway is the narrow interface the claim workflow depends on.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error)
}
