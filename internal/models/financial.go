package models

import (
	"fmt"
	"time"
)

// TransactionType — доход или расход.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction — запись финансового журнала.
type Transaction struct {
	ID          string          `json:"_id,omitempty"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
	GroupID     string          `json:"groupId,omitempty"`
	StudentID   string          `json:"studentId,omitempty"`
	Month       int             `json:"month,omitempty"`
	Year        int             `json:"year,omitempty"`
}

// TransactionFilter — параметры постраничного журнала.
type TransactionFilter struct {
	Page      int
	Limit     int
	Search    string
	Type      TransactionType
	StartDate time.Time
	EndDate   time.Time
	SortBy    string
	SortOrder string // asc|desc
}

// Pagination — метаданные страницы.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// TransactionPage — страница журнала.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

// FinancialStats — сводка доходов/расходов за период.
type FinancialStats struct {
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
	NetProfit    float64 `json:"netProfit"`
}

// ReportType — детализация отчёта.
type ReportType string

const (
	ReportDaily   ReportType = "daily"
	ReportMonthly ReportType = "monthly"
	ReportYearly  ReportType = "yearly"
)

// ReportRow — строка агрегированного отчёта.
type ReportRow struct {
	Period  string  `json:"period"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Profit  float64 `json:"profit"`
}

// FinancialReport — агрегированный отчёт.
type FinancialReport struct {
	Summary FinancialStats `json:"summary"`
	Rows    []ReportRow    `json:"rows"`
}

// StudentPaymentStatus — оплатил ли студент группы расчётный период.
type StudentPaymentStatus struct {
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName"`
	Paid        bool    `json:"paid"`
	Amount      float64 `json:"amount,omitempty"`
}

// GroupPaymentStatus — статусы оплаты группы за период.
type GroupPaymentStatus struct {
	GroupID  string                 `json:"groupId"`
	Month    int                    `json:"month"`
	Year     int                    `json:"year"`
	Students []StudentPaymentStatus `json:"students"`
}

// Period — расчётный месяц; навигация по месяцам в экранах оплат.
type Period struct {
	Month int // 1..12
	Year  int
}

// PeriodOf — месяц, в который попадает t.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// Next — следующий месяц.
func (p Period) Next() Period {
	if p.Month >= 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}

	return Period{Month: p.Month + 1, Year: p.Year}
}

// Prev — предыдущий месяц.
func (p Period) Prev() Period {
	if p.Month <= 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}

	return Period{Month: p.Month - 1, Year: p.Year}
}

// Valid — месяц в диапазоне 1..12 и год положительный.
func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
