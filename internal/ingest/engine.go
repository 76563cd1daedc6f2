// Package ingest wires the Mail Fetcher, Email Parsers, PDF Statement
// Parser, Merchant Normalizer, FX Cache, Categorization Cascade,
// Reconciliation Engine, Recurring-Expense Detector, and Anomaly Detector
// into the one per-profile sync run spec.md §4.9/§5 describes. cmd/syncd
// drives it on a schedule; cmd/batch drives it once. Both share this engine
// instead of duplicating orchestration behind two different mains.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/anomaly"
	"github.com/sebascrugu/finanzas-tracker-go/internal/categorize"
	"github.com/sebascrugu/finanzas-tracker-go/internal/dedup"
	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/emailparser"
	"github.com/sebascrugu/finanzas-tracker-go/internal/fxcache"
	"github.com/sebascrugu/finanzas-tracker-go/internal/mailclient"
	"github.com/sebascrugu/finanzas-tracker-go/internal/merchant"
	"github.com/sebascrugu/finanzas-tracker-go/internal/pdfparser"
	"github.com/sebascrugu/finanzas-tracker-go/internal/reconcile"
	"github.com/sebascrugu/finanzas-tracker-go/internal/recurring"
	"github.com/sebascrugu/finanzas-tracker-go/internal/repository/storage"
	"github.com/sebascrugu/finanzas-tracker-go/internal/syncstrategy"
	"github.com/sebascrugu/finanzas-tracker-go/internal/websocket"
)

// localCurrency is the currency every AmountLocal is expressed in (spec.md
// §4.2: Costa Rican Colón).
const localCurrency = "CRC"

// fuzzyDedupWindowDays bounds how far back the offline fuzzy duplicate
// detector looks each run (spec.md §4.7's banded scorer tops out at a
// 3-day gap between candidates, so a week of slack is plenty).
const fuzzyDedupWindowDays = 7

// Engine runs one profile's sync cycle end to end.
type Engine struct {
	Mail      *mailclient.Client
	Parsers   *emailparser.Registry
	Normalizer *merchant.Normalizer
	FX        *fxcache.Cache
	Cascade   *categorize.Cascade
	Archive   storage.PDFArchive
	LLMRows   pdfparser.LLMRowExtractor // optional; nil disables the deposit-statement OCR fallback

	Profiles      domain.ProfileRepository
	Transactions  domain.TransactionRepository
	Statements    domain.BankStatementRepository
	Cards         domain.CardRepository
	Subscriptions domain.SubscriptionRepository
	Alerts        domain.AlertRepository

	Locker    *syncstrategy.Locker
	SyncCfg   syncstrategy.Config
	Publisher websocket.EventPublisher

	SenderAllowlist     []string
	NotificationAddress string
}

// RunSync implements handler.SyncRunner for cmd/api's manual-trigger
// endpoint: it runs the same pipeline cmd/syncd's cron tick runs, logging
// the tallied result instead of returning it.
func (e *Engine) RunSync(profileID string) error {
	result, err := e.RunProfile(context.Background(), profileID)
	log.Info().
		Str("profile_id", profileID).
		Int("processed", result.Processed).
		Int("duplicates", result.Duplicates).
		Int("errors", result.Errors).
		Int("needs_review", result.NeedsReview).
		Msg("sync run finished")
	return err
}

// RunProfile runs one profile's full sync cycle: mail fetch, per-message
// parse/ingest, PDF statement reconciliation, and the recurring/anomaly
// passes, finishing with the committed sync-metadata update (spec.md §4.9).
// today is read from time.Now (UTC) at the start of the run; a caller
// cannot pin it.
func (e *Engine) RunProfile(ctx context.Context, profileID string) (domain.BatchResult, error) {
	var result domain.BatchResult

	release, err := e.Locker.TryLock(profileID)
	if err != nil {
		return result, err
	}
	defer release()

	profile, err := e.Profiles.GetByID(profileID)
	if err != nil {
		return result, err
	}

	today := time.Now().UTC()
	mode := syncstrategy.SelectMode(profile, today)
	start, end := e.window(profile, mode, today)

	log.Info().Str("profile_id", profileID).Str("mode", string(mode)).
		Time("window_start", start).Time("window_end", end).Msg("sync run starting")

	messages, err := e.Mail.Fetch(ctx, start, e.SenderAllowlist)
	if err != nil {
		return result, fmt.Errorf("ingest: fetching mail: %w", err)
	}

	var latestStatementEnd *time.Time

	for _, msg := range messages {
		if pdfAttachment := firstPDFAttachment(msg); pdfAttachment != nil {
			periodEnd, err := e.ingestStatement(ctx, profile, msg, *pdfAttachment, &result)
			if err != nil {
				result.RecordError(fmt.Sprintf("statement %s: %v", msg.Subject, err))
				continue
			}
			if periodEnd != nil && (latestStatementEnd == nil || periodEnd.After(*latestStatementEnd)) {
				latestStatementEnd = periodEnd
			}
			continue
		}

		if err := e.ingestMessage(ctx, profile, msg, &result); err != nil {
			result.RecordError(fmt.Sprintf("message %s: %v", msg.Subject, err))
		}
	}

	if err := e.runRecurringPass(profileID, today); err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("recurring-detection pass failed")
	}

	if err := e.runFuzzyDedupPass(profileID, today); err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("fuzzy-duplicate pass failed")
	}

	update := domain.SyncMetadataUpdate{LastSyncDate: &today}
	if latestStatementEnd != nil {
		update.LastStatementDate = latestStatementEnd
		if profile.LastStatementDate != nil {
			cycle := syncstrategy.InferCycleDays(*latestStatementEnd, *profile.LastStatementDate)
			update.StatementCycleDays = &cycle
		}
	}
	updated, err := e.Profiles.UpdateSyncMetadata(profileID, update)
	if err != nil {
		return result, fmt.Errorf("ingest: committing sync metadata: %w", err)
	}

	e.Publisher.Publish(profileID, websocket.ProfileSynced(updated))

	return result, nil
}

// window picks the gap-fill window for mode (spec.md §4.9). Onboarding's
// no-PDF fallback is detected after the fact — this pipeline discovers
// statements while iterating the mail window, so onboarding simply uses its
// widest window (the lookback period) up front rather than a two-pass
// search; a statement found inside it still narrows LastStatementDate for
// next time.
func (e *Engine) window(profile *domain.Profile, mode syncstrategy.Mode, today time.Time) (time.Time, time.Time) {
	switch mode {
	case syncstrategy.ModeOnboarding:
		return today.AddDate(0, 0, -e.SyncCfg.OnboardingLookbackDays), today
	case syncstrategy.ModeMonthly:
		if profile.LastStatementDate != nil {
			return syncstrategy.MonthlyGapWindow(*profile.LastStatementDate, today)
		}
		return syncstrategy.DailyEmailWindow(profile.LastSyncDate, today)
	default:
		return syncstrategy.DailyEmailWindow(profile.LastSyncDate, today)
	}
}

// ingestMessage parses one non-statement email and persists it as a
// Transaction (spec.md §4.3, §4.6, §4.7, §4.12).
func (e *Engine) ingestMessage(ctx context.Context, profile *domain.Profile, msg domain.RawMessage, result *domain.BatchResult) error {
	parsed, matched, err := e.Parsers.Parse(msg)
	if err != nil {
		return err
	}
	if !matched || parsed == nil {
		return nil
	}

	txn, err := e.buildTransaction(ctx, profile.ID, parsed)
	if err != nil {
		return err
	}
	txn.EmailID = dedup.EmailIDForMessage(parsed.SourceMessageID)

	created, wasDuplicate, err := e.Transactions.Create(txn)
	if err != nil {
		return err
	}
	if wasDuplicate {
		result.Duplicates++
		return nil
	}

	result.Processed++
	if created.CurrencyOriginal != localCurrency {
		result.USDConverted++
	}
	if created.CategoryNeedsReview {
		result.NeedsReview++
		e.Publisher.Publish(profile.ID, websocket.TransactionNeedsReview(created))
	} else {
		result.AutoCategorized++
	}
	e.Publisher.Publish(profile.ID, websocket.TransactionCreated(created))
	if created.IsAnomaly {
		e.raiseAnomalyAlert(profile.ID, created)
	}

	return nil
}

// buildTransaction runs the merchant/FX/categorize/anomaly/transfer steps
// shared by both the email and statement-row ingestion paths and assembles
// the Transaction row, stopping short of persistence so the caller can set
// the source-specific EmailID/StatementID fields.
func (e *Engine) buildTransaction(ctx context.Context, profileID string, parsed *domain.ParsedTransaction) (*domain.Transaction, error) {
	m, err := e.Normalizer.FindOrCreate(parsed.MerchantRaw, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("normalizing merchant: %w", err)
	}

	amountLocal := parsed.AmountOriginal
	var fxRate *decimal.Decimal
	if parsed.CurrencyOriginal != "" && parsed.CurrencyOriginal != localCurrency {
		rate, err := e.FX.GetRate(parsed.CurrencyOriginal, parsed.TxnTime)
		if err != nil {
			return nil, fmt.Errorf("converting currency: %w", err)
		}
		fxRate = &rate
		amountLocal = parsed.AmountOriginal.Mul(rate)
	}

	phoneNumber, namePrefix := categorize.SINPEIdentity(parsed.MerchantRaw, parsed.Metadata.Beneficiary)
	catResult, err := e.Cascade.Categorize(ctx, categorize.Input{
		ProfileID:   profileID,
		Kind:        parsed.Kind,
		MerchantRaw: parsed.MerchantRaw,
		MerchantKey: merchant.Normalize(parsed.MerchantRaw),
		Amount:      amountLocal,
		PhoneNumber: phoneNumber,
		NamePrefix:  namePrefix,
	})
	if err != nil {
		log.Warn().Err(err).Str("profile_id", profileID).Msg("categorization cascade failed, leaving uncategorized")
		catResult = &categorize.Result{Source: domain.SourceUncategorized, NeedsReview: true}
	}

	descriptor := parsed.MerchantRaw
	if parsed.Metadata.Concepto != nil {
		descriptor += " " + *parsed.Metadata.Concepto
	}

	txn := &domain.Transaction{
		ProfileID:           profileID,
		Bank:                parsed.Bank,
		Kind:                parsed.Kind,
		MerchantRaw:         parsed.MerchantRaw,
		MerchantID:          &m.ID,
		AmountOriginal:      parsed.AmountOriginal,
		CurrencyOriginal:    parsed.CurrencyOriginal,
		FXRate:              fxRate,
		AmountLocal:         amountLocal,
		TxnTime:             parsed.TxnTime,
		Beneficiary:         parsed.Metadata.Beneficiary,
		Subtype:             parsed.Metadata.Subtype,
		BankReference:       parsed.BankReference,
		SubcategoryID:       &catResult.SubcategoryID,
		CategoryConfidence:  catResult.Confidence,
		CategoryNeedsReview: catResult.NeedsReview,
		CategorySource:      catResult.Source,
		CategorySuggestedAlt: catResult.Alternatives,
		OriginalAISuggestion: &catResult.SubcategoryID,
		NeedsReconciliation: parsed.Metadata.NeedsReconciliation,
		Status:              domain.StatusConfirmed,
		IsInternalTransfer:  parsed.Metadata.IsOwnTransfer,
	}

	if cardMatch := anomaly.DetectCardPayment(descriptor, amountLocal, e.cardsFor(profileID)); cardMatch != nil {
		special := cardMatch.SpecialType
		txn.SpecialType = &special
		txn.IsInternalTransfer = true
		txn.ExcludeFromBudget = true
		if cardMatch.Card != nil {
			txn.CardID = &cardMatch.Card.ID
			if err := e.Cards.DecrementBalance(profileID, cardMatch.Card.ID, amountLocal); err != nil {
				log.Warn().Err(err).Int64("card_id", cardMatch.Card.ID).Msg("failed to decrement card balance")
			}
		}
	} else if transferMatch := anomaly.DetectInternalTransfer(descriptor); transferMatch != nil {
		special := transferMatch.SpecialType
		txn.SpecialType = &special
		txn.IsInternalTransfer = true
		txn.ExcludeFromBudget = true
	}

	if history, err := e.Transactions.GetByMerchant(profileID, m.ID, 90); err == nil && len(history) > 1 {
		amounts := make([]decimal.Decimal, 0, len(history))
		for _, h := range history {
			amounts = append(amounts, h.AmountLocal)
		}
		stats := anomaly.ComputeStats(amounts)
		if isAnomaly, score := anomaly.IsAnomaly(stats, amountLocal); isAnomaly {
			txn.IsAnomaly = true
			txn.AnomalyScore = &score
		}
	}

	return txn, nil
}

// cardsFor loads a profile's cards for the card-payment detector. Errors are
// swallowed to an empty slice: a lookup failure here degrades to "no digit
// match", not a failed ingestion.
func (e *Engine) cardsFor(profileID string) []*domain.Card {
	cards, err := e.Cards.ListByProfile(profileID)
	if err != nil {
		log.Warn().Err(err).Str("profile_id", profileID).Msg("failed to list cards for card-payment detection")
		return nil
	}
	return cards
}

// firstPDFAttachment returns the first attachment that looks like a bank
// statement PDF, or nil.
func firstPDFAttachment(msg domain.RawMessage) *domain.RawAttachment {
	for i := range msg.Attachments {
		a := &msg.Attachments[i]
		if isPDF(a.ContentType, a.Filename) {
			return a
		}
	}
	return nil
}

func isPDF(contentType, filename string) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// ingestStatement extracts, archives, and reconciles one PDF statement
// attachment (spec.md §4.4, §4.8), returning the statement's period end so
// the caller can track the latest one seen this run.
func (e *Engine) ingestStatement(ctx context.Context, profile *domain.Profile, msg domain.RawMessage, attachment domain.RawAttachment, result *domain.BatchResult) (*time.Time, error) {
	pages, err := pdfparser.ExtractPages(attachment.Data)
	if err != nil {
		return nil, fmt.Errorf("extracting pdf pages: %w", err)
	}
	filenameYear := pdfparser.YearFromFilename(attachment.Filename)

	isCreditCard := looksLikeCreditCardStatement(attachment.Filename, msg.Subject)

	var (
		rows        []domain.StatementRow
		kind        = domain.StatementDepositAccount
		cardLast4   string
		cutDate     time.Time
		dueDate     *time.Time
		creditLimit *decimal.Decimal
		minPayment  *decimal.Decimal
	)

	if isCreditCard {
		cc, err := pdfparser.ParseCreditCardStatement(pages)
		if err != nil {
			return nil, fmt.Errorf("parsing credit card statement: %w", err)
		}
		rows = cc.Rows
		kind = domain.StatementCreditCard
		cardLast4 = cc.Metadata.CardLast4
		cutDate = cc.Metadata.CutDate
		if !cc.Metadata.DueDate.IsZero() {
			dueDate = &cc.Metadata.DueDate
		}
		if !cc.Metadata.CreditLimitUSD.IsZero() {
			creditLimit = &cc.Metadata.CreditLimitUSD
		}
		if !cc.Metadata.MinimumPayment.IsZero() {
			minPayment = &cc.Metadata.MinimumPayment
		}
	} else {
		rows, err = pdfparser.ParseDepositStatement(ctx, pages, filenameYear, e.LLMRows)
		if err != nil {
			return nil, fmt.Errorf("parsing deposit statement: %w", err)
		}
		cutDate = latestRowDate(rows, msg.ReceivedAt)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows extracted from statement")
	}

	var cardID *int64
	if cardLast4 != "" {
		if card, err := e.Cards.FindByLast4(profile.ID, cardLast4); err == nil && card != nil {
			cardID = &card.ID
		}
	}

	periodStart := earliestRowDate(rows, cutDate)

	statement := &domain.BankStatement{
		ProfileID:      profile.ID,
		Bank:           bankFromSender(msg.FromAddress),
		Kind:           kind,
		CardID:         cardID,
		PeriodStart:    periodStart,
		PeriodEnd:      cutDate,
		DueDate:        dueDate,
		CreditLimit:    creditLimit,
		MinimumPayment: minPayment,
		ObjectKey:      fmt.Sprintf("%s/%d-%s", profile.ID, cutDate.Unix(), attachment.Filename),
	}

	if e.Archive != nil {
		if err := e.Archive.Upload(ctx, statement.ObjectKey, bytes.NewReader(attachment.Data), int64(len(attachment.Data))); err != nil {
			log.Warn().Err(err).Str("object_key", statement.ObjectKey).Msg("failed to archive statement pdf")
		}
	}

	created, err := e.Statements.Create(statement)
	if err != nil {
		return nil, fmt.Errorf("persisting statement: %w", err)
	}

	existing, err := e.Transactions.GetInWindow(profile.ID,
		periodStart.AddDate(0, 0, -e.SyncCfg.TraslapeDays),
		cutDate.AddDate(0, 0, e.SyncCfg.TraslapeDays))
	if err != nil {
		return nil, fmt.Errorf("loading window transactions for reconciliation: %w", err)
	}

	report := reconcile.Reconcile(rows, existing)

	ingestRow := func(row *domain.StatementRow) error {
		txn, err := e.buildStatementRowTransaction(ctx, profile.ID, created, row)
		if err != nil {
			return err
		}
		rowTxn, wasDuplicate, err := e.Transactions.Create(txn)
		if err != nil {
			return err
		}
		if !wasDuplicate {
			result.Processed++
			if rowTxn.IsAnomaly {
				e.raiseAnomalyAlert(profile.ID, rowTxn)
			}
		}
		return nil
	}

	if err := reconcile.Apply(e.Transactions, e.Statements, profile.ID, created.ID, report, ingestRow); err != nil {
		return nil, fmt.Errorf("applying reconciliation report: %w", err)
	}

	e.Publisher.Publish(profile.ID, websocket.BankStatementCompleted(created))
	if report.Status != "perfect" {
		alert := &domain.Alert{
			ProfileID: profile.ID,
			Kind:      domain.AlertReconciliationComplete,
			Message:   fmt.Sprintf("Statement reconciliation finished at %.1f%% match (%s)", report.MatchPercentage, report.Status),
			RefID:     &created.ID,
		}
		if saved, err := e.Alerts.Create(alert); err == nil {
			e.Publisher.Publish(profile.ID, websocket.AlertCreated(saved))
		}
	}

	return &cutDate, nil
}

// buildStatementRowTransaction turns an unmatched "only in PDF" row into a
// Transaction with the same merchant/FX/categorize/anomaly treatment an
// email-sourced transaction gets (spec.md §4.8: indistinguishable from
// email-sourced data once added).
func (e *Engine) buildStatementRowTransaction(ctx context.Context, profileID string, statement *domain.BankStatement, row *domain.StatementRow) (*domain.Transaction, error) {
	kind := domain.KindPurchase
	if statement.Kind == domain.StatementDepositAccount {
		if row.Amount.IsNegative() {
			kind = domain.KindWithdrawal
		} else {
			kind = domain.KindDeposit
		}
	}

	parsed := &domain.ParsedTransaction{
		Bank:             statement.Bank,
		Kind:             kind,
		MerchantRaw:      row.Description,
		AmountOriginal:   row.Amount.Abs(),
		CurrencyOriginal: row.Currency,
		TxnTime:          row.Date,
		BankReference:    strPtr(row.Reference),
	}

	txn, err := e.buildTransaction(ctx, profileID, parsed)
	if err != nil {
		return nil, err
	}

	txn.EmailID = dedup.EmailIDForStatementRow(statement.ID, row.Reference, row.RowOrdinal, row.Description, row.Amount)
	txn.StatementID = &statement.ID
	txn.StatementRowRef = strPtr(row.Reference)
	txn.Status = domain.StatusReconciled
	now := time.Now().UTC()
	txn.ReconciledAt = &now

	return txn, nil
}

// runRecurringPass re-runs the offline recurring-expense detector over the
// lookback window and reconciles its output against the persisted
// subscription set (spec.md §4.11), raising upcoming-charge alerts.
func (e *Engine) runRecurringPass(profileID string, today time.Time) error {
	cutoff := recurring.LookbackCutoff(today)
	txns, err := e.Transactions.GetInWindow(profileID, cutoff, today)
	if err != nil {
		return err
	}

	candidates := make([]recurring.Candidate, 0, len(txns))
	seen := make(map[string]bool)
	for _, t := range txns {
		if t.ExcludeFromBudget || t.Status == domain.StatusCancelled {
			continue
		}
		key := t.MerchantRaw
		if t.MerchantID != nil {
			key = fmt.Sprintf("merchant:%d", *t.MerchantID)
		}
		candidates = append(candidates, recurring.Candidate{
			MerchantKey: key,
			MerchantID:  t.MerchantID,
			Amount:      t.AmountLocal,
			Date:        t.TxnTime,
		})
		seen[key] = true
	}

	detections := recurring.Detect(candidates)
	for _, d := range detections {
		existing, err := e.Subscriptions.GetByMerchantKey(profileID, d.MerchantKey)
		var sub *domain.Subscription
		if err == nil && existing != nil {
			recurring.ApplyDetection(existing, d)
			sub = existing
		} else {
			sub = recurring.ToSubscription(profileID, d)
		}

		saved, err := e.Subscriptions.Upsert(sub)
		if err != nil {
			log.Error().Err(err).Str("merchant_key", d.MerchantKey).Msg("failed to upsert detected subscription")
			continue
		}
		e.Publisher.Publish(profileID, websocket.SubscriptionUpdated(saved))

		if raise, urgent := recurring.ShouldAlert(saved, today); raise {
			e.raiseSubscriptionAlert(profileID, saved, urgent)
		}
	}

	active, err := e.Subscriptions.ListActive(profileID)
	if err != nil {
		return err
	}
	for _, sub := range active {
		if seen[sub.MerchantKey] {
			continue
		}
		if recurring.ShouldDeactivate(sub, today) {
			if err := e.Subscriptions.Deactivate(profileID, sub.ID); err != nil {
				log.Error().Err(err).Int64("subscription_id", sub.ID).Msg("failed to deactivate stale subscription")
			}
		}
	}

	return nil
}

// runFuzzyDedupPass scores recently-ingested transactions against each
// other for near-duplicate pairs that slipped past identity-based dedup
// under different email_ids (spec.md §4.7, scenario B). Matches are only
// reported — never auto-merged; the user resolves which row (if either)
// is the real one.
func (e *Engine) runFuzzyDedupPass(profileID string, today time.Time) error {
	txns, err := e.Transactions.GetInWindow(profileID,
		today.AddDate(0, 0, -fuzzyDedupWindowDays), today)
	if err != nil {
		return err
	}

	seen := make(map[int64]bool)
	for i, a := range txns {
		if a.MerchantID == nil || seen[a.ID] {
			continue
		}
		for _, b := range txns[i+1:] {
			if b.MerchantID == nil || *a.MerchantID != *b.MerchantID || seen[b.ID] {
				continue
			}
			merchantKey := fmt.Sprintf("merchant:%d", *a.MerchantID)
			score := dedup.Score(
				dedup.Candidate{MerchantKey: merchantKey, Amount: a.AmountLocal, Date: a.TxnTime},
				dedup.Candidate{MerchantKey: merchantKey, Amount: b.AmountLocal, Date: b.TxnTime},
			)
			if score < dedup.DuplicateThreshold {
				continue
			}
			e.raiseDuplicateAlert(profileID, a, b, score)
			seen[a.ID] = true
			seen[b.ID] = true
			break
		}
	}
	return nil
}

// raiseDuplicateAlert persists and publishes a duplicate-candidate alert
// for a pair the fuzzy detector flagged.
func (e *Engine) raiseDuplicateAlert(profileID string, a, b *domain.Transaction, score int) {
	alert := &domain.Alert{
		ProfileID: profileID,
		Kind:      domain.AlertDuplicateCandidate,
		Message: fmt.Sprintf("possible duplicate: %s (%s) on %s looks like transaction #%d (%d%% match)",
			a.MerchantRaw, a.AmountLocal.StringFixed(2), a.TxnTime.Format("2006-01-02"), b.ID, score),
		RefID: &a.ID,
	}
	saved, err := e.Alerts.Create(alert)
	if err != nil {
		log.Error().Err(err).Int64("transaction_id", a.ID).Msg("failed to create duplicate-candidate alert")
		return
	}
	e.Publisher.Publish(profileID, websocket.AlertCreated(saved))
}

// raiseAnomalyAlert persists and publishes the anomaly alert for a
// transaction buildTransaction already flagged via anomaly.IsAnomaly
// (spec.md §4.12).
func (e *Engine) raiseAnomalyAlert(profileID string, txn *domain.Transaction) {
	score := ""
	if txn.AnomalyScore != nil {
		score = txn.AnomalyScore.StringFixed(1)
	}
	alert := &domain.Alert{
		ProfileID: profileID,
		Kind:      domain.AlertAnomaly,
		Message:   fmt.Sprintf("%s (%s) is unusual for this merchant (z-score %s)", txn.MerchantRaw, txn.AmountLocal.StringFixed(2), score),
		RefID:     &txn.ID,
	}
	saved, err := e.Alerts.Create(alert)
	if err != nil {
		log.Error().Err(err).Int64("transaction_id", txn.ID).Msg("failed to create anomaly alert")
		return
	}
	e.Publisher.Publish(profileID, websocket.AlertCreated(saved))
}

func (e *Engine) raiseSubscriptionAlert(profileID string, sub *domain.Subscription, urgent bool) {
	message := fmt.Sprintf("%s is due around %s (~%s)", sub.MerchantKey, sub.NextExpected.Format("2006-01-02"), sub.AvgAmount.StringFixed(2))
	if urgent {
		message = fmt.Sprintf("%s was due %s and hasn't been seen yet (~%s)", sub.MerchantKey, sub.NextExpected.Format("2006-01-02"), sub.AvgAmount.StringFixed(2))
	}

	alert := &domain.Alert{
		ProfileID: profileID,
		Kind:      domain.AlertSubscriptionUpcoming,
		Message:   message,
		RefID:     &sub.ID,
	}
	saved, err := e.Alerts.Create(alert)
	if err != nil {
		log.Error().Err(err).Int64("subscription_id", sub.ID).Msg("failed to create subscription alert")
		return
	}
	e.Publisher.Publish(profileID, websocket.AlertCreated(saved))
}

func looksLikeCreditCardStatement(filename, subject string) bool {
	lower := strings.ToLower(filename + " " + subject)
	for _, kw := range []string{"tarjeta", "credito", "crédito", "visa", "mastercard"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func bankFromSender(fromAddress string) string {
	lower := strings.ToLower(fromAddress)
	if strings.Contains(lower, "bac") {
		return "BAC"
	}
	if strings.Contains(lower, "popular") {
		return "Banco Popular"
	}
	return "unknown"
}

func latestRowDate(rows []domain.StatementRow, fallback time.Time) time.Time {
	latest := fallback
	for _, r := range rows {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest
}

func earliestRowDate(rows []domain.StatementRow, fallback time.Time) time.Time {
	if len(rows) == 0 {
		return fallback
	}
	earliest := rows[0].Date
	for _, r := range rows[1:] {
		if r.Date.Before(earliest) {
			earliest = r.Date
		}
	}
	return earliest
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
