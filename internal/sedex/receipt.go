// Package sedex reads transport receipts from the Sedex adapter's outbox
// and turns them into sedex-state events for the state processors.
package sedex

import (
	"encoding/xml"
	"fmt"
	"os"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

// StatusSuccess is the Sedex status code for a successfully transmitted
// message; every other code reports a failure.
const StatusSuccess = 100

// Receipt is the XML receipt the Sedex adapter writes for each outbound
// message. Unknown elements are ignored.
type Receipt struct {
	XMLName     xml.Name `xml:"receipt"`
	EventDate   string   `xml:"eventDate"`
	StatusCode  int      `xml:"statusCode"`
	StatusInfo  string   `xml:"statusInfo"`
	MessageID   string   `xml:"messageId"`
	MessageType string   `xml:"messageType"`
	SenderID    string   `xml:"senderId"`
	RecipientID string   `xml:"recipientId"`
}

// MessageState maps the receipt status onto the sedex message lifecycle.
func (r *Receipt) MessageState() domain.SedexMessageState {
	if r.StatusCode == StatusSuccess {
		return domain.SedexMessageStateSuccessful
	}
	return domain.SedexMessageStateFailed
}

// ParseReceipt decodes a receipt from raw XML.
func ParseReceipt(data []byte) (*Receipt, error) {
	var receipt Receipt
	if err := xml.Unmarshal(data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to parse sedex receipt: %w", err)
	}
	return &receipt, nil
}

// ReadReceiptFromFile decodes a receipt from a file.
func ReadReceiptFromFile(path string) (*Receipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sedex receipt: %w", err)
	}
	return ParseReceipt(data)
}
