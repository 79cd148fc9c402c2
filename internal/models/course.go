package models

import "time"

// PurchaseType — что покупается: урок или раздел целиком.
type PurchaseType string

const (
	PurchaseLesson PurchaseType = "lesson"
	PurchaseUnit   PurchaseType = "unit"
)

// Valid — известный тип покупки.
func (t PurchaseType) Valid() bool {
	return t == PurchaseLesson || t == PurchaseUnit
}

// Course — агрегат курса с разделами и уроками вне разделов.
type Course struct {
	ID            string   `json:"_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Instructor    string   `json:"instructor,omitempty"`
	Units         []Unit   `json:"units"`
	DirectLessons []Lesson `json:"directLessons"`
}

// Unit — раздел курса; может продаваться целиком.
type Unit struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Lessons     []Lesson `json:"lessons"`
}

// Lesson — урок с содержимым.
type Lesson struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Videos      []Content `json:"videos,omitempty"`
	PDFs        []Content `json:"pdfs,omitempty"`
	Exams       []Content `json:"exams,omitempty"`
	Trainings   []Content `json:"trainings,omitempty"`
}

// Content — элемент содержимого урока; клиенту нужны только id и заголовок.
type Content struct {
	ID    string `json:"_id"`
	Title string `json:"title,omitempty"`
}

// ContentCounts — сводка содержимого элемента каталога.
type ContentCounts struct {
	Videos    int
	PDFs      int
	Exams     int
	Trainings int
}

func (c *ContentCounts) add(l Lesson) {
	c.Videos += len(l.Videos)
	c.PDFs += len(l.PDFs)
	c.Exams += len(l.Exams)
	c.Trainings += len(l.Trainings)
}

// CatalogItem — урок или раздел в плоском представлении для проверки доступа.
type CatalogItem struct {
	Type        PurchaseType
	ID          string
	UnitID      string // для уроков внутри раздела
	Title       string
	Description string
	Price       float64
	Counts      ContentCounts
}

// Free — бесплатный элемент доступен без покупки.
func (i CatalogItem) Free() bool { return i.Price <= 0 }

// Items разворачивает курс в список элементов каталога: раздел, затем его уроки,
// затем уроки вне разделов.
func (c Course) Items() []CatalogItem {
	var out []CatalogItem

	for _, u := range c.Units {
		unit := CatalogItem{
			Type:        PurchaseUnit,
			ID:          u.ID,
			Title:       u.Title,
			Description: u.Description,
			Price:       u.Price,
		}
		for _, l := range u.Lessons {
			unit.Counts.add(l)
		}
		out = append(out, unit)

		for _, l := range u.Lessons {
			out = append(out, lessonItem(l, u.ID))
		}
	}

	for _, l := range c.DirectLessons {
		out = append(out, lessonItem(l, ""))
	}

	return out
}

func lessonItem(l Lesson, unitID string) CatalogItem {
	item := CatalogItem{
		Type:        PurchaseLesson,
		ID:          l.ID,
		UnitID:      unitID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
	}
	item.Counts.add(l)

	return item
}

// PurchaseKey — ключ записи о покупке.
type PurchaseKey struct {
	CourseID string
	Type     PurchaseType
	ItemID   string
}

// AccessSource — откуда получен доступ к курсу.
type AccessSource string

const (
	AccessSourceCode     AccessSource = "code"
	AccessSourcePurchase AccessSource = "purchase"
	AccessSourceNone     AccessSource = "none"
)

// CourseAccessGrant — доступ к курсу, в том числе ограниченный по времени доступ по коду.
type CourseAccessGrant struct {
	HasAccess   bool         `json:"hasAccess"`
	Source      AccessSource `json:"source"`
	AccessEndAt *time.Time   `json:"accessEndAt"`
}

// IsCode — доступ выдан кодом.
func (g CourseAccessGrant) IsCode() bool { return g.Source == AccessSourceCode }

// ExpiredAt — доступ по коду с заданным концом, который уже наступил к моменту now.
// Кэшированный HasAccess здесь не учитывается.
func (g CourseAccessGrant) ExpiredAt(now time.Time) bool {
	return g.IsCode() && g.AccessEndAt != nil && !g.AccessEndAt.After(now)
}

// RedeemRequest — активация кода для курса.
type RedeemRequest struct {
	Code     string `json:"code"`
	CourseID string `json:"courseId"`
}

// PurchaseRequest — покупка урока или раздела.
type PurchaseRequest struct {
	CourseID     string       `json:"courseId"`
	PurchaseType PurchaseType `json:"purchaseType"`
	ItemID       string       `json:"itemId"`
}

// WalletBalance — баланс кошелька пользователя.
type WalletBalance struct {
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency,omitempty"`
}

// PurchaseStatus — ответ проверки покупки.
type PurchaseStatus struct {
	Purchased bool `json:"purchased"`
}

// CourseSearchResult — результат поиска курсов.
type CourseSearchResult struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Instructor  string  `json:"instructor,omitempty"`
	Price       float64 `json:"price,omitempty"`
}
