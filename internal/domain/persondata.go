package domain

import "github.com/google/uuid"

// PersonData is the record payload carried on the lwgs exchange. The
// payload itself is opaque to this client; only the transaction id is
// inspected downstream.
type PersonData struct {
	TransactionID uuid.UUID `json:"transactionId"`
	Payload       string    `json:"payload"`
}
