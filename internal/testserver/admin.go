package testserver

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

const dateLayout = "2006-01-02"

// XLSXContentType — тип шаблона оценок.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TemplateBytes — содержимое шаблона, которое отдаёт сервер.
var TemplateBytes = []byte("PK\x03\x04offline-grades-template")

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if userFrom(r.Context()).Role.IsAdmin() {
		return true
	}

	s.writeFail(w, http.StatusForbidden, "FORBIDDEN", "Admin access required")
	return false
}

// dateRange читает startDate/endDate; endDate включает весь день.
func dateRange(r *http.Request) (from, to time.Time, ok bool) {
	q := r.URL.Query()
	if v := q.Get("startDate"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return from, to, false
		}
		from = t
	}
	if v := q.Get("endDate"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return from, to, false
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}

	return from, to, true
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}

	return true
}

func (s *Server) recordTransaction(typ models.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireAdmin(w, r) {
			return
		}

		var tx models.Transaction
		if err := decode(r, &tx); err != nil {
			s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid transaction")
			return
		}
		if tx.Amount <= 0 {
			s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Amount must be positive")
			return
		}

		tx.ID = uuid.NewString()
		tx.Type = typ
		if tx.Date.IsZero() {
			tx.Date = s.now().UTC()
		}

		s.mu.Lock()
		s.transactions = append(s.transactions, tx)
		s.mu.Unlock()

		writeData(w, http.StatusCreated, tx)
	}
}

// filtered — транзакции по периоду; вызывается под s.mu.
func (s *Server) filtered(from, to time.Time) []models.Transaction {
	var out []models.Transaction
	for _, tx := range s.transactions {
		if inRange(tx.Date, from, to) {
			out = append(out, tx)
		}
	}

	return out
}

func totals(txs []models.Transaction) models.FinancialStats {
	var st models.FinancialStats
	for _, tx := range txs {
		switch tx.Type {
		case models.TransactionIncome:
			st.TotalIncome += tx.Amount
		case models.TransactionExpense:
			st.TotalExpense += tx.Amount
		}
	}
	st.NetProfit = st.TotalIncome - st.TotalExpense

	return st
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(r)
	if !ok {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid date")
		return
	}

	s.mu.Lock()
	st := totals(s.filtered(from, to))
	s.mu.Unlock()

	writeData(w, http.StatusOK, st)
}

func (s *Server) report(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(r)
	if !ok {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid date")
		return
	}

	layout := "2006-01"
	switch models.ReportType(r.URL.Query().Get("reportType")) {
	case models.ReportDaily:
		layout = dateLayout
	case models.ReportYearly:
		layout = "2006"
	case models.ReportMonthly, "":
	default:
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid report type")
		return
	}

	s.mu.Lock()
	txs := s.filtered(from, to)
	s.mu.Unlock()

	rows := map[string]*models.ReportRow{}
	for _, tx := range txs {
		key := tx.Date.UTC().Format(layout)
		row, ok := rows[key]
		if !ok {
			row = &models.ReportRow{Period: key}
			rows[key] = row
		}
		if tx.Type == models.TransactionIncome {
			row.Income += tx.Amount
		} else {
			row.Expense += tx.Amount
		}
		row.Profit = row.Income - row.Expense
	}

	rep := models.FinancialReport{Summary: totals(txs), Rows: make([]models.ReportRow, 0, len(rows))}
	for _, row := range rows {
		rep.Rows = append(rep.Rows, *row)
	}
	sort.Slice(rep.Rows, func(i, j int) bool { return rep.Rows[i].Period < rep.Rows[j].Period })

	writeData(w, http.StatusOK, rep)
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, ok := dateRange(r)
	if !ok {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid date")
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	search := strings.ToLower(q.Get("search"))
	typ := models.TransactionType(q.Get("type"))

	s.mu.Lock()
	var out []models.Transaction
	for _, tx := range s.filtered(from, to) {
		if typ != "" && tx.Type != typ {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(tx.Description+" "+tx.Category), search) {
			continue
		}
		out = append(out, tx)
	}
	s.mu.Unlock()

	desc := q.Get("sortOrder") != "asc"
	byAmount := q.Get("sortBy") == "amount"
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if byAmount {
			if desc {
				return a.Amount > b.Amount
			}
			return a.Amount < b.Amount
		}
		if desc {
			return a.Date.After(b.Date)
		}
		return a.Date.Before(b.Date)
	})

	total := len(out)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	writeData(w, http.StatusOK, models.TransactionPage{
		Transactions: append([]models.Transaction{}, out[start:end]...),
		Pagination: models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

func (s *Server) paymentStatus(w http.ResponseWriter, r *http.Request) {
	month, err1 := strconv.Atoi(r.URL.Query().Get("month"))
	year, err2 := strconv.Atoi(r.URL.Query().Get("year"))
	p := models.Period{Month: month, Year: year}
	if err1 != nil || err2 != nil || !p.Valid() {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid month or year")
		return
	}

	groupID := chi.URLParam(r, "groupId")

	s.mu.Lock()
	students, ok := s.payments[groupID]
	s.mu.Unlock()

	if !ok {
		s.writeFail(w, http.StatusNotFound, "GROUP_NOT_FOUND", "Group not found")
		return
	}

	writeData(w, http.StatusOK, models.GroupPaymentStatus{
		GroupID:  groupID,
		Month:    p.Month,
		Year:     p.Year,
		Students: students,
	})
}

func (s *Server) listNotifications(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]models.Notification{}, s.notifications...)
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			writeData(w, http.StatusOK, s.notifications[i])
			return
		}
	}

	s.writeFail(w, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "Notification not found")
}

func (s *Server) readAll(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := 0
	for i := range s.notifications {
		if !s.notifications[i].Read {
			s.notifications[i].Read = true
			n++
		}
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]int{"modified": n})
}

func (s *Server) allInstructors(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]models.Instructor{}, s.instructors...)
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func (s *Server) myCourses(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())

	s.mu.Lock()
	out := make([]models.Course, 0)
	for _, c := range s.courses {
		if c.Instructor == u.ID {
			out = append(out, c)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeData(w, http.StatusOK, out)
}

func (s *Server) createInstructor(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var in models.Instructor
	if err := decode(r, &in); err != nil || strings.TrimSpace(in.Name) == "" {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Instructor name is required")
		return
	}
	in.ID = uuid.NewString()

	s.mu.Lock()
	s.instructors = append(s.instructors, in)
	s.mu.Unlock()

	writeData(w, http.StatusCreated, in)
}

func (s *Server) updateInstructor(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var in models.Instructor
	if err := decode(r, &in); err != nil {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid instructor")
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.instructors {
		if s.instructors[i].ID == id {
			in.ID = id
			s.instructors[i] = in
			writeData(w, http.StatusOK, in)
			return
		}
	}

	s.writeFail(w, http.StatusNotFound, "INSTRUCTOR_NOT_FOUND", "Instructor not found")
}

func (s *Server) deleteInstructor(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.instructors {
		if s.instructors[i].ID == id {
			s.instructors = append(s.instructors[:i], s.instructors[i+1:]...)
			writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Instructor deleted"})
			return
		}
	}

	s.writeFail(w, http.StatusNotFound, "INSTRUCTOR_NOT_FOUND", "Instructor not found")
}

func (s *Server) listGrades(w http.ResponseWriter, r *http.Request) {
	groupID := r.URL.Query().Get("groupId")

	s.mu.Lock()
	out := make([]models.OfflineGrade, 0, len(s.grades))
	for _, g := range s.grades {
		if groupID == "" || g.GroupID == groupID {
			out = append(out, g)
		}
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}

func validGrade(g models.OfflineGrade) bool {
	return g.StudentID != "" && g.ExamTitle != "" && g.MaxScore > 0 && g.Score >= 0 && g.Score <= g.MaxScore
}

func (s *Server) createGrade(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var g models.OfflineGrade
	if err := decode(r, &g); err != nil || !validGrade(g) {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid grade")
		return
	}
	g.ID = uuid.NewString()

	s.mu.Lock()
	s.grades = append(s.grades, g)
	s.mu.Unlock()

	writeData(w, http.StatusCreated, g)
}

func (s *Server) updateGrade(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	var g models.OfflineGrade
	if err := decode(r, &g); err != nil || !validGrade(g) {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid grade")
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.grades {
		if s.grades[i].ID == id {
			g.ID = id
			s.grades[i] = g
			writeData(w, http.StatusOK, g)
			return
		}
	}

	s.writeFail(w, http.StatusNotFound, "GRADE_NOT_FOUND", "Grade not found")
}

func (s *Server) deleteGrade(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.grades {
		if s.grades[i].ID == id {
			s.grades = append(s.grades[:i], s.grades[i+1:]...)
			writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Grade deleted"})
			return
		}
	}

	s.writeFail(w, http.StatusNotFound, "GRADE_NOT_FOUND", "Grade not found")
}

func (s *Server) gradesTemplate(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="offline-grades-template.xlsx"`)
	_, _ = w.Write(TemplateBytes)
}

// uploadGrades принимает multipart с полем file. Каждая непустая строка после
// заголовка считается созданной оценкой.
func (s *Server) uploadGrades(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}

	f, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeFail(w, http.StatusBadRequest, "FILE_REQUIRED", "File is required")
		return
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Unreadable file")
		return
	}

	res := models.UploadResult{}
	sc := bufio.NewScanner(bytes.NewReader(b))
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		if strings.TrimSpace(sc.Text()) != "" {
			res.Created++
		}
	}

	s.mu.Lock()
	s.upload = b
	s.uploadName = hdr.Filename
	s.mu.Unlock()

	writeData(w, http.StatusOK, res)
}
