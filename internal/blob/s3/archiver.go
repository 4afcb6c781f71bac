package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yieldplay/yieldplay/internal/domain"
)

// settlementReport is the header line of a settlement archive, followed by
// one JSON line per position.
type settlementReport struct {
	MarketID   string     `json:"market_id"`
	Question   string     `json:"question"`
	Outcome    string     `json:"outcome"`
	YesPool    string     `json:"yes_pool"`
	NoPool     string     `json:"no_pool"`
	Positions  int        `json:"positions"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ArchivedAt time.Time  `json:"archived_at"`
}

type settlementPosition struct {
	PositionID string `json:"position_id"`
	Address    string `json:"address"`
	Side       string `json:"side"`
	Amount     string `json:"amount"`
	PlacedAt   string `json:"placed_at"`
}

// ArchiveImpl implements domain.Archiver by snapshotting a resolved market
// and its positions to JSONL and uploading the result to S3.
//
// The archive captures resolution-time pool state, so payouts for late
// claims can always be reconstructed even if the primary store is lost.
type ArchiveImpl struct {
	writer    domain.BlobWriter
	markets   domain.MarketStore
	positions domain.PositionStore
	audit     domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	markets domain.MarketStore,
	positions domain.PositionStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		markets:   markets,
		positions: positions,
		audit:     audit,
	}
}

// ArchiveSettlement uploads the settlement report for a resolved market to
// archive/settlements/YYYY-MM/{marketID}.jsonl and returns the object path.
// It returns domain.ErrMarketNotResolved for an unresolved market.
func (a *ArchiveImpl) ArchiveSettlement(ctx context.Context, marketID string) (string, error) {
	m, err := a.markets.GetByID(ctx, marketID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive settlement %s: %w", marketID, err)
	}
	if !m.Resolved || m.Outcome == nil {
		return "", fmt.Errorf("s3blob: archive settlement %s: %w", marketID, domain.ErrMarketNotResolved)
	}

	positions, err := a.positions.ListByMarket(ctx, marketID)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive settlement %s positions: %w", marketID, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header := settlementReport{
		MarketID:   m.ID,
		Question:   m.Question,
		Outcome:    string(*m.Outcome),
		YesPool:    m.YesPool.String(),
		NoPool:     m.NoPool.String(),
		Positions:  len(positions),
		ResolvedAt: m.ResolvedAt,
		ArchivedAt: time.Now().UTC(),
	}
	if err := enc.Encode(header); err != nil {
		return "", fmt.Errorf("s3blob: encode settlement header: %w", err)
	}
	for i, p := range positions {
		line := settlementPosition{
			PositionID: p.ID,
			Address:    p.Address,
			Side:       string(p.Side),
			Amount:     p.Amount.String(),
			PlacedAt:   p.PlacedAt.Format(time.RFC3339),
		}
		if err := enc.Encode(line); err != nil {
			return "", fmt.Errorf("s3blob: encode settlement position %d: %w", i, err)
		}
	}

	path := settlementPath(m)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf.Bytes()), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: upload settlement %s: %w", marketID, err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.settlement", map[string]any{
			"path":      path,
			"market_id": m.ID,
			"positions": len(positions),
		}); err != nil {
			return path, fmt.Errorf("s3blob: settlement audit log: %w", err)
		}
	}

	return path, nil
}

// settlementPath builds the S3 key for a settlement archive, partitioned by
// the year-month of resolution.
//
//	archive/settlements/2025-01/{marketID}.jsonl
func settlementPath(m domain.Market) string {
	at := time.Now().UTC()
	if m.ResolvedAt != nil {
		at = *m.ResolvedAt
	}
	return fmt.Sprintf("archive/settlements/%s/%s.jsonl", at.Format("2006-01"), m.ID)
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
