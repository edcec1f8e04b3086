package transport

import "github.com/Skotchmaster/storefront/internal/models"

type CheckoutRequest struct {
	GuestName       string         `json:"guest_name"`
	GuestEmail      string         `json:"guest_email"`
	GuestPhone      string         `json:"guest_phone"`
	ShippingAddress models.Address `json:"shipping_address"`
	Note            string         `json:"note"`
}

type UpdateStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

type RejectPaymentRequest struct {
	Reason string `json:"reason"`
}
