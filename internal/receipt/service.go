package receipt

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-scanner/internal/extraction"
	"github.com/zombor/receipt-scanner/internal/scanning"
)

const lowConfidenceWarning = "Some details could not be read reliably. Please review them before saving."

// IDGenerator generates unique IDs for scans and transactions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt scanning and transaction bookkeeping
type Service struct {
	db          DB
	recognizer  scanning.TextRecognizer
	parser      *extraction.Parser
	storage     Storage
	metrics     *Metrics
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID IDs and the wall clock.
// metrics may be nil.
func NewService(db DB, recognizer scanning.TextRecognizer, parser *extraction.Parser, storage Storage, metrics *Metrics) *Service {
	return NewServiceWithDeps(db, recognizer, parser, storage, metrics, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, recognizer scanning.TextRecognizer, parser *extraction.Parser, storage Storage, metrics *Metrics, idGen IDGenerator, timeSrc TimeSource) *Service {
	if parser == nil {
		parser = extraction.NewParser()
	}
	return &Service{
		db:          db,
		recognizer:  recognizer,
		parser:      parser,
		storage:     storage,
		metrics:     metrics,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename shortens phone-generated names and strips anything that
// is not safe in a storage key
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filenameUnsafe.ReplaceAllString(filepath.Ext(filename), ""))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = filenameUnsafe.ReplaceAllString(base, "")
	base = strings.TrimSpace(filenameSpaces.ReplaceAllString(base, " "))

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}
	if ext != "" {
		ext = "." + ext
	}
	return base + ext
}

// ScanReceipt stores an upload, recognises its text and extracts the receipt
// fields. The result is not persisted; confirm it with CreateTransaction or
// drop the upload with DiscardScan.
func (s *Service) ScanReceipt(ctx context.Context, filename string, data []byte, contentType string) (*ScanResult, error) {
	if s.recognizer == nil {
		return nil, errors.New("no text recognizer configured")
	}

	id := s.idGenerator.Generate()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		s.metrics.recordScanFailure("storage")
		return nil, fmt.Errorf("saving file: %w", err)
	}

	start := time.Now()
	lines, err := s.recognizer.RecognizeText(ctx, data, contentType)
	s.metrics.recordOCR(time.Since(start))
	if err != nil {
		slog.Error("Failed to recognize receipt text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.metrics.recordScanFailure("ocr")
		if delErr := s.storage.Delete(savedPath); delErr != nil {
			slog.Warn("Failed to clean up upload", "filename", savedPath, "error", delErr)
		}
		return nil, fmt.Errorf("recognizing text: %w", err)
	}
	if lines == nil {
		lines = []string{}
	}

	result, err := s.extract(lines)
	if err != nil {
		return nil, err
	}
	result.ID = id
	result.Filename = savedPath
	result.ContentType = contentType

	slog.Info("Scanned receipt",
		"id", id,
		"lines", len(lines),
		"confidence", result.Receipt.Confidence.Overall(),
	)
	return result, nil
}

// DiscardScan deletes the upload of a scan that was never confirmed.
// filename is the ScanResult.Filename returned by ScanReceipt.
func (s *Service) DiscardScan(filename string) error {
	id, _, ok := strings.Cut(filename, "_")
	if !ok || id == "" {
		return fmt.Errorf("%w: %q is not a scan upload", ErrNotFound, filename)
	}

	t, err := s.db.GetTransaction(id)
	switch {
	case err == nil && t.Filename == filename:
		return fmt.Errorf("%w: %s", ErrScanConfirmed, id)
	case err != nil && !errors.Is(err, ErrNotFound):
		return fmt.Errorf("checking scan %s: %w", id, err)
	}

	if err := s.storage.Delete(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrNotFound, filename)
		}
		return fmt.Errorf("deleting scan upload: %w", err)
	}
	slog.Info("Discarded unconfirmed scan", "id", id, "filename", filename)
	return nil
}

// ParseText extracts receipt fields from text that was recognised elsewhere
func (s *Service) ParseText(lines []string) (*ScanResult, error) {
	return s.extract(lines)
}

func (s *Service) extract(lines []string) (*ScanResult, error) {
	receipt, err := s.parser.Parse(lines)
	if err != nil {
		s.metrics.recordScanFailure("parse")
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}

	result := &ScanResult{
		Receipt:        receipt,
		HighConfidence: receipt.IsHighConfidence(),
	}
	if !result.HighConfidence {
		result.Warning = lowConfidenceWarning
	}
	s.metrics.recordExtraction(result)
	return result, nil
}

// NewTransactionFromScan pre-fills a draft transaction from a scan.
// The draft keeps the scan ID so the stored upload stays linked.
func (s *Service) NewTransactionFromScan(result *ScanResult) *Transaction {
	t := &Transaction{
		ID:             result.ID,
		Currency:       DefaultCurrency,
		Category:       DefaultCategory,
		PaymentMethod:  PaymentCard,
		Filename:       result.Filename,
		ContentType:    result.ContentType,
		ScanConfidence: result.Receipt.Confidence.Overall(),
	}
	r := result.Receipt
	if r.Merchant != nil {
		t.Merchant = *r.Merchant
	}
	if r.Amount != nil {
		t.Amount = amountToCents(*r.Amount)
	}
	if r.Date != nil {
		t.Date = *r.Date
	}
	if r.Category != nil {
		t.Category = *r.Category
	}
	return t
}

// CreateTransaction validates t, fills in defaults and saves it
func (s *Service) CreateTransaction(t *Transaction) error {
	t.Merchant = strings.TrimSpace(t.Merchant)
	if t.Merchant == "" {
		return fmt.Errorf("%w: merchant is required", ErrInvalidTransaction)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = PaymentCard
	}
	if !t.PaymentMethod.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidTransaction, t.PaymentMethod)
	}
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	if strings.TrimSpace(t.Category) == "" {
		t.Category = DefaultCategory
	}

	now := s.timeSource.Now()
	if t.ID == "" {
		t.ID = s.idGenerator.Generate()
	}
	if t.Date.IsZero() {
		t.Date = now
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	if err := s.db.SaveTransaction(t); err != nil {
		return fmt.Errorf("saving transaction: %w", err)
	}
	s.metrics.recordTransaction()
	return nil
}

// GetTransaction retrieves a transaction by ID
func (s *Service) GetTransaction(id string) (*Transaction, error) {
	t, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction: %w", err)
	}
	return t, nil
}

// ListTransactions returns all transactions, newest first
func (s *Service) ListTransactions() ([]*Transaction, error) {
	transactions, err := s.db.ListTransactions()
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	slices.SortStableFunc(transactions, func(a, b *Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})
	return transactions, nil
}

// DeleteTransaction removes a transaction and its upload
func (s *Service) DeleteTransaction(id string) error {
	t, err := s.db.GetTransaction(id)
	if err != nil {
		return fmt.Errorf("getting transaction for deletion: %w", err)
	}

	if t.Filename != "" {
		if err := s.storage.Delete(t.Filename); err != nil {
			slog.Warn("Failed to delete file", "filename", t.Filename, "error", err)
		}
	}

	if err := s.db.DeleteTransaction(id); err != nil {
		return fmt.Errorf("deleting transaction from database: %w", err)
	}
	return nil
}

// GetTransactionFile retrieves the original upload of a transaction
func (s *Service) GetTransactionFile(id string) ([]byte, string, error) {
	t, err := s.db.GetTransaction(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting transaction: %w", err)
	}
	if t.Filename == "" {
		return nil, "", fmt.Errorf("%w: transaction %s has no file", ErrNotFound, id)
	}

	data, err := s.storage.Get(t.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting transaction file: %w", err)
	}
	return data, t.ContentType, nil
}

// ExportTransactions writes every transaction, newest first, as XLSX
func (s *Service) ExportTransactions(w io.Writer) error {
	transactions, err := s.ListTransactions()
	if err != nil {
		return err
	}
	return WriteTransactionsXLSX(w, transactions)
}
