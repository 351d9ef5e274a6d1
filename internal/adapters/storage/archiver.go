package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"travel_quote_backend/platform/logger"
)

// ObjectStore is the storage surface the archiver needs.
type ObjectStore interface {
	UploadFile(ctx context.Context, bucket, fileKey, contentType string, reader io.Reader, size int64) error
}

// QuotePDFArchiver downloads a delivered quote PDF from the remote CDN
// and stores a copy in the archive bucket, keyed by reservation id.
type QuotePDFArchiver struct {
	store  ObjectStore
	bucket string
	http   *http.Client
	log    *logger.Logger
}

// NewQuotePDFArchiver creates an archiver writing to the given bucket.
func NewQuotePDFArchiver(store ObjectStore, bucket string, log *logger.Logger) *QuotePDFArchiver {
	return &QuotePDFArchiver{
		store:  store,
		bucket: bucket,
		http:   &http.Client{Timeout: 60 * time.Second},
		log:    log,
	}
}

// ArchiveQuotePDF fetches the document and stores it under
// <reservationID>/quote_<timestamp>.pdf.
func (a *QuotePDFArchiver) ArchiveQuotePDF(ctx context.Context, reservationID, pdfURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build pdf request: %w", err)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download quote pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("quote pdf download returned %d", resp.StatusCode)
	}

	fileKey := fmt.Sprintf("%s/quote_%d.pdf", reservationID, time.Now().UTC().Unix())
	if err := a.store.UploadFile(ctx, a.bucket, fileKey, "application/pdf", resp.Body, resp.ContentLength); err != nil {
		return err
	}

	a.log.Info("quote pdf archived", "reservation_id", reservationID, "file_key", fileKey)
	return nil
}
