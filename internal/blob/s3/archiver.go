package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/satfolio/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// LedgerSource is the slice of the ledger store the archiver reads.
type LedgerSource interface {
	ListAll(ctx context.Context, userID uuid.UUID) ([]domain.LedgerEvent, error)
}

// LedgerRecord is the archived JSONL form of one ledger event.
type LedgerRecord struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Date        string  `json:"date"`
	Kind        string  `json:"kind"`
	BTCDelta    string  `json:"btc_delta"`
	FiatCost    string  `json:"fiat_cost"`
	PricePerBTC *string `json:"price_per_btc,omitempty"`
	Note        string  `json:"note,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func newLedgerRecord(ev domain.LedgerEvent) LedgerRecord {
	rec := LedgerRecord{
		ID:        ev.ID.String(),
		UserID:    ev.UserID.String(),
		Date:      ev.Date.UTC().Format(time.RFC3339),
		Kind:      string(ev.Kind),
		BTCDelta:  ev.BTCDelta.String(),
		FiatCost:  ev.FiatCost.String(),
		Note:      ev.Note,
		CreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if ev.PricePerBTC != nil {
		p := ev.PricePerBTC.String()
		rec.PricePerBTC = &p
	}
	return rec
}

// LedgerArchiver implements domain.LedgerArchiver. It copies a user's full
// ledger to archive/ledger/{user}/{timestamp}.jsonl and never deletes
// anything itself.
type LedgerArchiver struct {
	writer        domain.BlobWriter
	ledger        LedgerSource
	multipartSize int64
	now           func() time.Time
}

var _ domain.LedgerArchiver = (*LedgerArchiver)(nil)

// NewLedgerArchiver creates a LedgerArchiver. Archives larger than
// MinPartSize go through the multipart uploader.
func NewLedgerArchiver(writer domain.BlobWriter, ledger LedgerSource) *LedgerArchiver {
	return &LedgerArchiver{
		writer:        writer,
		ledger:        ledger,
		multipartSize: MinPartSize,
		now:           time.Now,
	}
}

// ArchiveLedger uploads the user's ledger and returns the object path and
// event count. An empty ledger is still archived so deletions leave a trace.
func (a *LedgerArchiver) ArchiveLedger(ctx context.Context, userID uuid.UUID) (string, int64, error) {
	events, err := a.ledger.ListAll(ctx, userID)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: archive ledger %s query: %w", userID, err)
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: archive ledger %s marshal: %w", userID, err)
	}

	path := ledgerArchivePath(userID, a.now())
	if int64(len(buf)) > a.multipartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), a.multipartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), jsonlContentType)
	}
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: archive ledger %s upload: %w", userID, err)
	}
	return path, int64(len(events)), nil
}

func ledgerArchivePath(userID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("archive/ledger/%s/%s.jsonl", userID, at.UTC().Format("20060102T150405Z"))
}

func marshalJSONL(events []domain.LedgerEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		if err := enc.Encode(newLedgerRecord(ev)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// CloseRecord is one line of a monthly close backfill file.
type CloseRecord struct {
	Month  string `json:"month"`
	Close  string `json:"close"`
	Source string `json:"source,omitempty"`
}

// ReadCloses loads a JSONL close backfill from path. Blank lines are
// skipped; any malformed line fails the whole read with its line number.
func ReadCloses(ctx context.Context, r domain.BlobReader, path string) ([]domain.MonthlyClose, error) {
	body, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var closes []domain.MonthlyClose
	sc := bufio.NewScanner(body)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		c, err := parseCloseRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("s3blob: read closes %s line %d: %w", path, line, err)
		}
		if c.Source == "" {
			c.Source = "backfill"
		}
		closes = append(closes, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("s3blob: read closes %s: %w", path, err)
	}
	return closes, nil
}

func parseCloseRecord(raw []byte) (domain.MonthlyClose, error) {
	var rec CloseRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.MonthlyClose{}, err
	}
	m, err := domain.ParseMonth(rec.Month)
	if err != nil {
		return domain.MonthlyClose{}, err
	}
	price, err := decimal.NewFromString(rec.Close)
	if err != nil {
		return domain.MonthlyClose{}, fmt.Errorf("parse close %q: %w", rec.Close, err)
	}
	c := domain.MonthlyClose{Month: m, Close: price, Source: rec.Source}
	if err := c.Validate(); err != nil {
		return domain.MonthlyClose{}, err
	}
	return c, nil
}
