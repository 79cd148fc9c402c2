// testserver — поддельный бэкенд портала на chi для тестов клиента.
//
// Сессия живёт в cookie accessToken/refreshToken, как у настоящего бэкенда.
// Состояние одно на сервер (один пользователь кошелька), этого достаточно
// для сценариев клиента. Ответы — {"success","message","data"}; ошибки — в
// обоих форматах, которые понимает клиент.
package testserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

// BasePath — префикс API.
const BasePath = "/api/v1"

// Имена cookie сессии.
const (
	CookieAccess  = "accessToken"
	CookieRefresh = "refreshToken"
)

// Code — код доступа к курсу.
type Code struct {
	Code     string
	CourseID string
	Duration time.Duration
	Used     bool
	Expired  bool
}

type account struct {
	password string
	user     models.User
}

type Server struct {
	srv *httptest.Server
	log *slog.Logger
	now func() time.Time

	mu            sync.Mutex
	accounts      map[string]account // по email
	access        map[string]string  // access token -> user id
	refresh       map[string]string  // refresh token -> user id
	courses       map[string]models.Course
	purchased     map[models.PurchaseKey]bool
	failStatus    map[string]bool // itemID -> 500 на purchase-status
	grants        map[string]models.CourseAccessGrant
	codes         map[string]*Code
	wallet        float64
	transactions  []models.Transaction
	notifications []models.Notification
	instructors   []models.Instructor
	grades        []models.OfflineGrade
	groups        []models.Group
	payments      map[string][]models.StudentPaymentStatus
	upload        []byte
	uploadName    string
	deviceInfo    string
	hits          map[string]int

	failRefresh   bool
	deviceBlocked bool
	legacyErrors  bool
	refreshGate   chan struct{}
}

// Option настраивает сервер.
type Option func(*Server)

// WithLogger — логгер сервера (по умолчанию slog.Default).
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.log = l } }

// WithClock — источник времени для сроков доступа по коду.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithLegacyErrors — ошибки без машиночитаемого code, только message.
func WithLegacyErrors() Option { return func(s *Server) { s.legacyErrors = true } }

// New запускает сервер. Вызывающий закрывает его через Close.
func New(opts ...Option) *Server {
	s := &Server{
		log:        slog.Default(),
		now:        time.Now,
		accounts:   make(map[string]account),
		access:     make(map[string]string),
		refresh:    make(map[string]string),
		courses:    make(map[string]models.Course),
		purchased:  make(map[models.PurchaseKey]bool),
		failStatus: make(map[string]bool),
		grants:     make(map[string]models.CourseAccessGrant),
		codes:      make(map[string]*Code),
		payments:   make(map[string][]models.StudentPaymentStatus),
		hits:       make(map[string]int),
	}
	for _, o := range opts {
		o(s)
	}

	s.srv = httptest.NewServer(s.router())
	return s
}

// URL — адрес сервера без префикса API.
func (s *Server) URL() string { return s.srv.URL }

// BaseURL — адрес API (URL + /api/v1).
func (s *Server) BaseURL() string { return s.srv.URL + BasePath }

func (s *Server) Close() { s.srv.Close() }

func (s *Server) router() http.Handler {
	root := chi.NewRouter()
	root.Use(recoverer(), requestID(), s.logging())

	root.Route(BasePath, func(r chi.Router) {
		r.Post("/users/login", s.login)
		r.Post("/users/logout", s.logout)
		r.Post("/users/refresh-token", s.refreshToken)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticated, s.deviceCheck)

			r.Get("/courses/{id}", s.getCourse)

			r.Get("/payment/purchase-status/{courseId}/{purchaseType}/{itemId}", s.purchaseStatus)
			r.Get("/payment/wallet-balance", s.walletBalance)
			r.Post("/payment/purchase", s.purchase)

			r.Get("/course-access/check/{courseId}", s.checkAccess)
			r.Post("/course-access/redeem", s.redeem)

			r.Get("/financial", s.listTransactions)
			r.Get("/financial/stats", s.stats)
			r.Get("/financial/report", s.report)
			r.Post("/financial/income", s.recordTransaction(models.TransactionIncome))
			r.Post("/financial/expense", s.recordTransaction(models.TransactionExpense))
			r.Get("/financial/group/{groupId}/payment-status", s.paymentStatus)

			r.Get("/notifications/notifications", s.listNotifications)
			r.Patch("/notifications/notifications/read-all", s.readAll)
			r.Patch("/notifications/notifications/{id}/read", s.markRead)

			r.Get("/instructors/all", s.allInstructors)
			r.Get("/instructors/my-courses", s.myCourses)
			r.Post("/instructors", s.createInstructor)
			r.Put("/instructors/{id}", s.updateInstructor)
			r.Delete("/instructors/{id}", s.deleteInstructor)

			r.Get("/offline-grades", s.listGrades)
			r.Post("/offline-grades", s.createGrade)
			r.Get("/offline-grades/template", s.gradesTemplate)
			r.Post("/offline-grades/upload", s.uploadGrades)
			r.Put("/offline-grades/{id}", s.updateGrade)
			r.Delete("/offline-grades/{id}", s.deleteGrade)

			r.Get("/groups", s.listGroups)
			r.Get("/search/courses", s.searchCourses)
		})
	})

	return root
}

// --- управление состоянием из тестов ---

// AddUser регистрирует пользователя; пустой ID заменяется новым UUID.
func (s *Server) AddUser(email, password string, u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = email
	s.accounts[email] = account{password: password, user: u}
	return u
}

func (s *Server) AddCourse(c models.Course) {
	s.mu.Lock()
	s.courses[c.ID] = c
	s.mu.Unlock()
}

func (s *Server) SetPurchased(k models.PurchaseKey, v bool) {
	s.mu.Lock()
	s.purchased[k] = v
	s.mu.Unlock()
}

// FailPurchaseStatus — проверка покупки itemID отвечает 500.
func (s *Server) FailPurchaseStatus(itemID string) {
	s.mu.Lock()
	s.failStatus[itemID] = true
	s.mu.Unlock()
}

// SetGrant задаёт ответ check для курса как есть, в том числе устаревший hasAccess.
func (s *Server) SetGrant(courseID string, g models.CourseAccessGrant) {
	s.mu.Lock()
	s.grants[courseID] = g
	s.mu.Unlock()
}

func (s *Server) AddCode(c Code) {
	s.mu.Lock()
	cc := c
	s.codes[c.Code] = &cc
	s.mu.Unlock()
}

func (s *Server) SetWallet(v float64) {
	s.mu.Lock()
	s.wallet = v
	s.mu.Unlock()
}

func (s *Server) Wallet() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wallet
}

func (s *Server) AddNotification(n models.Notification) {
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	s.mu.Unlock()
}

func (s *Server) AddGroup(g models.Group, students []models.StudentPaymentStatus) {
	s.mu.Lock()
	s.groups = append(s.groups, g)
	s.payments[g.ID] = students
	s.mu.Unlock()
}

func (s *Server) AddInstructor(in models.Instructor) {
	s.mu.Lock()
	s.instructors = append(s.instructors, in)
	s.mu.Unlock()
}

func (s *Server) AddTransaction(tx models.Transaction) {
	s.mu.Lock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	s.transactions = append(s.transactions, tx)
	s.mu.Unlock()
}

// ExpireSessions делает все access-токены недействительными; refresh-токены живы.
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	s.access = make(map[string]string)
	s.mu.Unlock()
}

// FailRefresh — эндпоинт обновления отвечает 401.
func (s *Server) FailRefresh(v bool) {
	s.mu.Lock()
	s.failRefresh = v
	s.mu.Unlock()
}

// BlockDevice — защищённые маршруты отвечают 403 «устройство не авторизовано».
func (s *Server) BlockDevice(v bool) {
	s.mu.Lock()
	s.deviceBlocked = v
	s.mu.Unlock()
}

// HoldRefresh задерживает ответы эндпоинта обновления до вызова release.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})

	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.refreshGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Hits — число обращений к маршруту вида "POST /users/refresh-token".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.hits[route]
}

// LastUpload — имя и содержимое последнего загруженного файла оценок.
func (s *Server) LastUpload() (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.uploadName, s.upload
}

// LastDeviceInfo — последний полученный заголовок x-device-info.
func (s *Server) LastDeviceInfo() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deviceInfo
}

func (s *Server) hit(route string) {
	s.mu.Lock()
	s.hits[route]++
	s.mu.Unlock()
}

// --- ответы ---

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeFail — ошибка в формате {"success":false,"message","code"}.
func (s *Server) writeFail(w http.ResponseWriter, status int, code, msg string) {
	if s.legacyErrors {
		code = ""
	}
	writeJSON(w, status, envelope{Success: false, Message: msg, Code: code})
}

// writeNested — ошибка в формате {"error":{"code","message","request_id"}}.
func writeNested(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":       code,
			"message":    msg,
			"request_id": r.Header.Get("X-Request-Id"),
		},
	})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}
