package recurring

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// ProjectionWindowDays is the rolling horizon the cash-flow projection
// looks ahead (SPEC_FULL.md supplemented feature #5).
const ProjectionWindowDays = 30

// ProjectedCharge is one active subscription's next expected hit within the
// projection window.
type ProjectedCharge struct {
	SubscriptionID int64           `json:"subscriptionId"`
	MerchantKey    string          `json:"merchantKey"`
	Amount         decimal.Decimal `json:"amount"`
	ExpectedDate   time.Time       `json:"expectedDate"`
}

// ProjectionReport is a thin read-model aggregating active subscriptions'
// next-expected charges into a rolling cash-flow projection. It's derived
// entirely from already-detected Subscription rows — no new detection
// happens here.
type ProjectionReport struct {
	WindowStart time.Time         `json:"windowStart"`
	WindowEnd   time.Time         `json:"windowEnd"`
	Charges     []ProjectedCharge `json:"charges"`
	Total       decimal.Decimal   `json:"total"`
}

// Project builds a ProjectionReport from a profile's active subscriptions,
// keeping only those whose NextExpected falls within
// [today, today+ProjectionWindowDays]. Subscriptions already past due are
// surfaced by the subscription_upcoming alert (ShouldAlert), not here.
func Project(subs []*domain.Subscription, today time.Time) ProjectionReport {
	windowEnd := today.AddDate(0, 0, ProjectionWindowDays)
	report := ProjectionReport{
		WindowStart: today,
		WindowEnd:   windowEnd,
		Charges:     []ProjectedCharge{},
		Total:       decimal.Zero,
	}

	for _, sub := range subs {
		if !sub.Active {
			continue
		}
		if sub.NextExpected.Before(today) || sub.NextExpected.After(windowEnd) {
			continue
		}
		report.Charges = append(report.Charges, ProjectedCharge{
			SubscriptionID: sub.ID,
			MerchantKey:    sub.MerchantKey,
			Amount:         sub.AvgAmount,
			ExpectedDate:   sub.NextExpected,
		})
		report.Total = report.Total.Add(sub.AvgAmount)
	}

	sort.Slice(report.Charges, func(i, j int) bool {
		return report.Charges[i].ExpectedDate.Before(report.Charges[j].ExpectedDate)
	})

	return report
}

// alertLeadDays are the lead times (days before NextExpected) that raise a
// subscription_upcoming alert (spec.md §4.11).
var alertLeadDays = []int{7, 3, 1, 0}

// ShouldAlert reports whether today should raise an alert for sub, and
// whether that alert is the urgent past-due variant. It's meant to be
// called once per subscription per day; callers are responsible for not
// re-raising an alert already acknowledged for the same NextExpected date.
func ShouldAlert(sub *domain.Subscription, today time.Time) (raise bool, urgent bool) {
	daysUntil := int(sub.NextExpected.Sub(today).Hours() / 24)

	if daysUntil < 0 {
		return true, true
	}
	for _, lead := range alertLeadDays {
		if daysUntil == lead {
			return true, false
		}
	}
	return false, false
}
