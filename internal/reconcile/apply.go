package reconcile

import (
	"time"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// IngestFunc routes an unmatched PDF row through the regular ingestion
// path (normalizer + categorizer) so an "only in PDF" addition is
// indistinguishable from email-sourced data (spec.md §4.8).
type IngestFunc func(row *domain.StatementRow) error

// Apply commits a Report: matched rows are linked to their transaction
// (never overwriting other fields, per spec.md §4.8) and the statement's
// four-bucket summary is persisted. Rows bucketed "only in PDF" are handed
// to ingestOnlyInPDF for one-click addition; a nil ingestOnlyInPDF leaves
// them unadded (e.g. a dry-run report).
func Apply(
	transactions domain.TransactionRepository,
	statements domain.BankStatementRepository,
	profileID string,
	statementID int64,
	report *Report,
	ingestOnlyInPDF IngestFunc,
) error {
	now := time.Now()

	for _, m := range report.Matches {
		switch m.Bucket {
		case BucketMatchedHigh, BucketMatchedMedium, BucketMatchedLow:
			if err := transactions.MarkReconciled(profileID, m.Transaction.ID, statementID, m.Row.Reference, now); err != nil {
				return err
			}
		case BucketOnlyInPDF:
			if ingestOnlyInPDF != nil {
				if err := ingestOnlyInPDF(m.Row); err != nil {
					return err
				}
			}
		}
	}

	return statements.UpdateReconcileSummary(
		profileID, statementID,
		report.TotalPDF, report.TotalSystem, report.MatchedCount, report.MatchPercentage, report.Status,
	)
}
