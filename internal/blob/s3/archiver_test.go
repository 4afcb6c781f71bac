package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yieldplay/yieldplay/internal/domain"
	"github.com/yieldplay/yieldplay/internal/store/memory"
)

type captureWriter struct {
	path        string
	contentType string
	data        []byte
}

func (w *captureWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	w.path = path
	w.contentType = contentType
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.data = b
	return nil
}

func TestArchiveSettlement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ledger := memory.NewLedger()

	resolvedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	outcome := domain.OutcomeYes
	err := ledger.WithTx(ctx, func(tx domain.Tx) error {
		u := domain.NewUser("0xabc", resolvedAt)
		if err := tx.CreateUser(ctx, u); err != nil {
			return err
		}
		m := domain.Market{
			ID:         "m1",
			Question:   "archived?",
			CloseTime:  resolvedAt.Add(-time.Hour),
			Difficulty: 2,
			YesPool:    decimal.NewFromInt(300),
			NoPool:     decimal.NewFromInt(100),
			Resolved:   true,
			Outcome:    &outcome,
			ResolvedAt: &resolvedAt,
		}
		if err := tx.CreateMarket(ctx, m); err != nil {
			return err
		}
		return tx.CreatePosition(ctx, domain.Position{
			ID:       "p1",
			MarketID: "m1",
			Address:  "0xabc",
			Side:     domain.SideYes,
			Amount:   decimal.NewFromInt(300),
			PlacedAt: resolvedAt.Add(-2 * time.Hour),
		})
	})
	require.NoError(t, err)

	w := &captureWriter{}
	archiver := NewArchiver(w, ledger.Markets(), ledger.Positions(), nil)

	path, err := archiver.ArchiveSettlement(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "archive/settlements/2026-03/m1.jsonl", path)
	assert.Equal(t, "application/x-ndjson", w.contentType)

	lines := bytes.Split(bytes.TrimSpace(w.data), []byte("\n"))
	require.Len(t, lines, 2)

	var header settlementReport
	require.NoError(t, json.Unmarshal(lines[0], &header))
	assert.Equal(t, "m1", header.MarketID)
	assert.Equal(t, "YES", header.Outcome)
	assert.Equal(t, "300", header.YesPool)
	assert.Equal(t, 1, header.Positions)

	var pos settlementPosition
	require.NoError(t, json.Unmarshal(lines[1], &pos))
	assert.Equal(t, "p1", pos.PositionID)
	assert.Equal(t, "YES", pos.Side)
}

func TestArchiveSettlementUnresolved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ledger := memory.NewLedger()

	err := ledger.WithTx(ctx, func(tx domain.Tx) error {
		return tx.CreateMarket(ctx, domain.Market{
			ID:        "m2",
			Question:  "still open",
			CloseTime: time.Now().Add(time.Hour),
		})
	})
	require.NoError(t, err)

	archiver := NewArchiver(&captureWriter{}, ledger.Markets(), ledger.Positions(), nil)
	_, err = archiver.ArchiveSettlement(ctx, "m2")
	assert.ErrorIs(t, err, domain.ErrMarketNotResolved)
}
