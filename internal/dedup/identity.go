// Package dedup implements Deduplication & Identity (spec.md §4.7): the
// content-addressed email_id every parsed record is assigned on ingest,
// and an offline fuzzy duplicate scorer that runs across already-stored
// transactions.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// EmailIDForMessage builds the dedup key for an email-sourced transaction:
// the upstream message id is the natural key (spec.md §4.7).
func EmailIDForMessage(sourceMessageID string) string {
	return "msg:" + sourceMessageID
}

// EmailIDForStatementRow builds the dedup key for a PDF-sourced
// transaction. A single reference number can reproduce across statements
// (e.g. a recurring debit with the same bank reference every month), so
// the compound (statement-id, row-reference, row-ordinal, raw-description,
// amount) is fingerprinted rather than the reference alone (spec.md §4.7).
func EmailIDForStatementRow(statementID int64, rowReference string, rowOrdinal int, rawDescription string, amount decimal.Decimal) string {
	payload := fmt.Sprintf("%d|%s|%d|%s|%s", statementID, rowReference, rowOrdinal, rawDescription, amount.String())
	sum := sha256.Sum256([]byte(payload))
	return "pdf:" + hex.EncodeToString(sum[:])
}
