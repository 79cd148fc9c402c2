package testserver

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	c, ok := s.courses[chi.URLParam(r, "id")]
	s.mu.Unlock()

	if !ok {
		s.writeFail(w, http.StatusNotFound, "COURSE_NOT_FOUND", "Course not found")
		return
	}

	writeData(w, http.StatusOK, c)
}

func (s *Server) purchaseStatus(w http.ResponseWriter, r *http.Request) {
	k := models.PurchaseKey{
		CourseID: chi.URLParam(r, "courseId"),
		Type:     models.PurchaseType(chi.URLParam(r, "purchaseType")),
		ItemID:   chi.URLParam(r, "itemId"),
	}
	if !k.Type.Valid() {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid purchase type")
		return
	}

	s.mu.Lock()
	fail := s.failStatus[k.ItemID]
	v := s.purchased[k]
	s.mu.Unlock()

	if fail {
		writeNested(w, r, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	writeData(w, http.StatusOK, models.PurchaseStatus{Purchased: v})
}

func (s *Server) walletBalance(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	b := s.wallet
	s.mu.Unlock()

	writeData(w, http.StatusOK, models.WalletBalance{Balance: b, Currency: "EGP"})
}

// itemPrice ищет цену урока или раздела; вызывается под s.mu.
func (s *Server) itemPrice(k models.PurchaseKey) (float64, bool) {
	c, ok := s.courses[k.CourseID]
	if !ok {
		return 0, false
	}

	for _, it := range c.Items() {
		if it.Type == k.Type && it.ID == k.ItemID {
			return it.Price, true
		}
	}

	return 0, false
}

func (s *Server) purchase(w http.ResponseWriter, r *http.Request) {
	var in models.PurchaseRequest
	if err := decode(r, &in); err != nil || !in.PurchaseType.Valid() || in.ItemID == "" {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Invalid purchase request")
		return
	}

	k := models.PurchaseKey{CourseID: in.CourseID, Type: in.PurchaseType, ItemID: in.ItemID}

	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.itemPrice(k)
	switch {
	case !ok:
		s.writeFail(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found")
		return
	case s.purchased[k]:
		s.writeFail(w, http.StatusBadRequest, "ALREADY_PURCHASED", "Item already purchased")
		return
	case s.wallet < price:
		s.writeFail(w, http.StatusBadRequest, "INSUFFICIENT_BALANCE", "Insufficient wallet balance")
		return
	}

	s.wallet -= price
	s.purchased[k] = true
	writeData(w, http.StatusOK, models.WalletBalance{Balance: s.wallet, Currency: "EGP"})
}

func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	g, ok := s.grants[chi.URLParam(r, "courseId")]
	s.mu.Unlock()

	if !ok {
		g = models.CourseAccessGrant{Source: models.AccessSourceNone}
	}

	writeData(w, http.StatusOK, g)
}

func (s *Server) redeem(w http.ResponseWriter, r *http.Request) {
	var in models.RedeemRequest
	if err := decode(r, &in); err != nil || strings.TrimSpace(in.Code) == "" {
		s.writeFail(w, http.StatusBadRequest, "CODE_REQUIRED", "Code is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[in.CourseID]; !ok {
		s.writeFail(w, http.StatusNotFound, "COURSE_NOT_FOUND", "Course not found")
		return
	}

	c, ok := s.codes[in.Code]
	switch {
	case !ok:
		s.writeFail(w, http.StatusBadRequest, "INVALID_CODE", "Invalid or expired code")
		return
	case c.Used:
		s.writeFail(w, http.StatusBadRequest, "CODE_ALREADY_USED", "Code has already been used")
		return
	case c.CourseID != in.CourseID:
		s.writeFail(w, http.StatusBadRequest, "CODE_NOT_FOR_COURSE", "Code is not valid for this course")
		return
	case c.Expired:
		s.writeFail(w, http.StatusBadRequest, "ACCESS_EXPIRED", "Access window has expired")
		return
	}

	c.Used = true
	end := s.now().Add(c.Duration).UTC()
	g := models.CourseAccessGrant{HasAccess: true, Source: models.AccessSourceCode, AccessEndAt: &end}
	s.grants[in.CourseID] = g

	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Code redeemed", Data: g})
}

func (s *Server) searchCourses(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	s.mu.Lock()
	out := make([]models.CourseSearchResult, 0)
	for _, c := range s.courses {
		if q == "" || strings.Contains(strings.ToLower(c.Title), q) {
			out = append(out, models.CourseSearchResult{ID: c.ID, Title: c.Title, Description: c.Description, Instructor: c.Instructor})
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeData(w, http.StatusOK, out)
}

func (s *Server) listGroups(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := append([]models.Group{}, s.groups...)
	s.mu.Unlock()

	writeData(w, http.StatusOK, out)
}
