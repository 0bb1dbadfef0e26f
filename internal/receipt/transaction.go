package receipt

import (
	"errors"
	"time"

	"github.com/zombor/receipt-scanner/internal/extraction"
)

var (
	// ErrNotFound is returned when a transaction does not exist
	ErrNotFound = errors.New("transaction not found")

	// ErrInvalidTransaction is returned when a transaction fails validation
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrScanConfirmed is returned when discarding a scan whose upload
	// already belongs to a saved transaction
	ErrScanConfirmed = errors.New("scan already saved as a transaction")
)

const (
	DefaultCurrency = "USD"
	DefaultCategory = "Other"
)

// PaymentMethod is how a transaction was paid
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "Card"
	PaymentCash         PaymentMethod = "Cash"
	PaymentApplePay     PaymentMethod = "Apple Pay"
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentCash, PaymentApplePay, PaymentBankTransfer:
		return true
	}
	return false
}

// Transaction is a confirmed expense, usually created from a scanned receipt
type Transaction struct {
	ID             string        `json:"id"`
	Merchant       string        `json:"merchant"`
	Amount         int           `json:"amount"` // Amount in cents
	Currency       string        `json:"currency"`
	Category       string        `json:"category"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	Notes          string        `json:"notes,omitempty"`
	Date           time.Time     `json:"date"`
	Filename       string        `json:"filename,omitempty"`
	ContentType    string        `json:"content_type,omitempty"`
	ScanConfidence float64       `json:"scan_confidence,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ScanResult is the outcome of scanning an uploaded receipt. Nothing is
// persisted until the caller confirms it as a Transaction.
type ScanResult struct {
	ID             string                    `json:"id,omitempty"`
	Filename       string                    `json:"filename,omitempty"`
	ContentType    string                    `json:"content_type,omitempty"`
	Receipt        extraction.ScannedReceipt `json:"receipt"`
	HighConfidence bool                      `json:"high_confidence"`
	Warning        string                    `json:"warning,omitempty"`
}
