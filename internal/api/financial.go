package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

// DateLayout — формат дат в query финансовых эндпоинтов.
const DateLayout = "2006-01-02"

const (
	msgAmountPositive = "يجب أن يكون المبلغ أكبر من صفر"
	msgInvalidPeriod  = "الشهر أو السنة غير صحيحة"
	msgInvalidRange   = "تاريخ البداية يجب أن يسبق تاريخ النهاية"
)

type Financial struct {
	d *doer
}

// PaymentStatus — кто из группы оплатил месяц p.
func (f *Financial) PaymentStatus(ctx context.Context, groupID string, p models.Period) (models.GroupPaymentStatus, error) {
	const op = "api/Financial.PaymentStatus"

	if !p.Valid() {
		return models.GroupPaymentStatus{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgInvalidPeriod))
	}

	q := url.Values{
		"month": {strconv.Itoa(p.Month)},
		"year":  {strconv.Itoa(p.Year)},
	}

	var out models.GroupPaymentStatus
	if _, err := f.d.call(ctx, http.MethodGet, "/financial/group/"+esc(groupID)+"/payment-status", q, nil, &out); err != nil {
		return models.GroupPaymentStatus{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (f *Financial) RecordIncome(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	return f.record(ctx, "api/Financial.RecordIncome", "/financial/income", tx)
}

func (f *Financial) RecordExpense(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	return f.record(ctx, "api/Financial.RecordExpense", "/financial/expense", tx)
}

func (f *Financial) record(ctx context.Context, op, path string, tx models.Transaction) (models.Transaction, error) {
	if tx.Amount <= 0 {
		return models.Transaction{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgAmountPositive))
	}

	var out models.Transaction
	if _, err := f.d.call(ctx, http.MethodPost, path, nil, tx, &out); err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Report — агрегированный отчёт за [from, to].
func (f *Financial) Report(ctx context.Context, from, to time.Time, typ models.ReportType) (models.FinancialReport, error) {
	const op = "api/Financial.Report"

	q, err := rangeQuery(from, to)
	if err != nil {
		return models.FinancialReport{}, fmt.Errorf("%s: %w", op, err)
	}
	if typ != "" {
		q.Set("reportType", string(typ))
	}

	var out models.FinancialReport
	if _, err := f.d.call(ctx, http.MethodGet, "/financial/report", q, nil, &out); err != nil {
		return models.FinancialReport{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// List — страница журнала транзакций.
func (f *Financial) List(ctx context.Context, flt models.TransactionFilter) (models.TransactionPage, error) {
	const op = "api/Financial.List"

	q, err := rangeQuery(flt.StartDate, flt.EndDate)
	if err != nil {
		return models.TransactionPage{}, fmt.Errorf("%s: %w", op, err)
	}
	if flt.Page > 0 {
		q.Set("page", strconv.Itoa(flt.Page))
	}
	if flt.Limit > 0 {
		q.Set("limit", strconv.Itoa(flt.Limit))
	}
	if flt.Search != "" {
		q.Set("search", flt.Search)
	}
	if flt.Type != "" {
		q.Set("type", string(flt.Type))
	}
	if flt.SortBy != "" {
		q.Set("sortBy", flt.SortBy)
	}
	if flt.SortOrder != "" {
		q.Set("sortOrder", flt.SortOrder)
	}

	var out models.TransactionPage
	if _, err := f.d.call(ctx, http.MethodGet, "/financial", q, nil, &out); err != nil {
		return models.TransactionPage{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Stats — итоги доходов и расходов за [from, to].
func (f *Financial) Stats(ctx context.Context, from, to time.Time) (models.FinancialStats, error) {
	const op = "api/Financial.Stats"

	q, err := rangeQuery(from, to)
	if err != nil {
		return models.FinancialStats{}, fmt.Errorf("%s: %w", op, err)
	}

	var out models.FinancialStats
	if _, err := f.d.call(ctx, http.MethodGet, "/financial/stats", q, nil, &out); err != nil {
		return models.FinancialStats{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// rangeQuery — startDate/endDate; нулевые границы опускаются.
func rangeQuery(from, to time.Time) (url.Values, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, apierrors.NewValidation(msgInvalidRange)
	}

	q := url.Values{}
	if !from.IsZero() {
		q.Set("startDate", from.Format(DateLayout))
	}
	if !to.IsZero() {
		q.Set("endDate", to.Format(DateLayout))
	}

	return q, nil
}
