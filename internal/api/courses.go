package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

const (
	msgInvalidPurchase = "نوع الشراء غير صالح"
	msgCodeRequired    = "يرجى إدخال كود الوصول"
)

type Courses struct {
	d *doer
}

// GetByID — курс с разделами и уроками.
func (c *Courses) GetByID(ctx context.Context, id string) (models.Course, error) {
	const op = "api/Courses.GetByID"

	var out models.Course
	if _, err := c.d.call(ctx, http.MethodGet, "/courses/"+esc(id), nil, nil, &out); err != nil {
		return models.Course{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

type Payments struct {
	d *doer
}

// PurchaseStatus — куплен ли урок или раздел.
func (p *Payments) PurchaseStatus(ctx context.Context, k models.PurchaseKey) (bool, error) {
	const op = "api/Payments.PurchaseStatus"

	if !k.Type.Valid() {
		return false, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgInvalidPurchase))
	}

	path := fmt.Sprintf("/payment/purchase-status/%s/%s/%s", esc(k.CourseID), k.Type, esc(k.ItemID))

	var out models.PurchaseStatus
	if _, err := p.d.call(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return out.Purchased, nil
}

// WalletBalance — баланс кошелька.
func (p *Payments) WalletBalance(ctx context.Context) (models.WalletBalance, error) {
	const op = "api/Payments.WalletBalance"

	var out models.WalletBalance
	if _, err := p.d.call(ctx, http.MethodGet, "/payment/wallet-balance", nil, nil, &out); err != nil {
		return models.WalletBalance{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Purchase покупает элемент; сервер возвращает новый баланс.
func (p *Payments) Purchase(ctx context.Context, req models.PurchaseRequest) (models.WalletBalance, error) {
	const op = "api/Payments.Purchase"

	if !req.PurchaseType.Valid() || blank(req.ItemID) || blank(req.CourseID) {
		return models.WalletBalance{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgInvalidPurchase))
	}

	var out models.WalletBalance
	if _, err := p.d.call(ctx, http.MethodPost, "/payment/purchase", nil, req, &out); err != nil {
		return models.WalletBalance{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

type CourseAccess struct {
	d *doer
}

// Check — текущий доступ к курсу.
func (a *CourseAccess) Check(ctx context.Context, courseID string) (models.CourseAccessGrant, error) {
	const op = "api/CourseAccess.Check"

	var out models.CourseAccessGrant
	if _, err := a.d.call(ctx, http.MethodGet, "/course-access/check/"+esc(courseID), nil, nil, &out); err != nil {
		return models.CourseAccessGrant{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Redeem активирует код. Формат кода проверяет вызывающий; здесь — только пустоту.
// Возвращает новый доступ и сообщение сервера.
func (a *CourseAccess) Redeem(ctx context.Context, courseID, code string) (models.CourseAccessGrant, string, error) {
	const op = "api/CourseAccess.Redeem"

	if blank(code) {
		return models.CourseAccessGrant{}, "", fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgCodeRequired))
	}

	var out models.CourseAccessGrant
	msg, err := a.d.call(ctx, http.MethodPost, "/course-access/redeem", nil,
		models.RedeemRequest{Code: code, CourseID: courseID}, &out)
	if err != nil {
		return models.CourseAccessGrant{}, "", fmt.Errorf("%s: %w", op, err)
	}

	return out, msg, nil
}

type Groups struct {
	d *doer
}

func (g *Groups) List(ctx context.Context) ([]models.Group, error) {
	const op = "api/Groups.List"

	var out []models.Group
	if _, err := g.d.call(ctx, http.MethodGet, "/groups", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

type Search struct {
	d *doer
}

// Courses — поиск курсов по названию.
func (s *Search) Courses(ctx context.Context, q string) ([]models.CourseSearchResult, error) {
	const op = "api/Search.Courses"

	var out []models.CourseSearchResult
	if _, err := s.d.call(ctx, http.MethodGet, "/search/courses", url.Values{"q": {q}}, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
