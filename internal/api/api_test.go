package api_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MohamedElaraby99/socrates-sub000/internal/api"
	"github.com/MohamedElaraby99/socrates-sub000/internal/config"
	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/internal/session"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage/memory"
	"github.com/MohamedElaraby99/socrates-sub000/internal/testserver"
	"github.com/MohamedElaraby99/socrates-sub000/internal/transport"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	studentEmail = "student@socrates.test"
	adminEmail   = "admin@socrates.test"
	password     = "secret"
)

type fixture struct {
	srv   *testserver.Server
	store *memory.Store
	api   *api.Clients
}

func setup(t *testing.T, opts ...testserver.Option) *fixture {
	t.Helper()

	srv := testserver.New(append([]testserver.Option{testserver.WithLogger(discard)}, opts...)...)
	t.Cleanup(srv.Close)

	srv.AddUser(studentEmail, password, models.User{ID: "u1", FullName: "Mona", Role: models.RoleUser})
	srv.AddUser(adminEmail, password, models.User{ID: "a1", FullName: "Omar", Role: models.RoleAdmin})
	srv.AddCourse(models.Course{
		ID:         "c1",
		Title:      "Physics 101",
		Instructor: "a1",
		Units: []models.Unit{{
			ID: "u-1", Title: "Mechanics", Price: 120,
			Lessons: []models.Lesson{{ID: "l-1", Title: "Newton", Price: 40}},
		}},
		DirectLessons: []models.Lesson{{ID: "l-free", Title: "Intro", Price: 0}},
	})

	cfg := &config.Config{
		API:      config.APIConfig{Mode: config.ModeDevelopment, OriginHost: "localhost"},
		Timeouts: config.TimeoutConfig{Request: 5 * time.Second},
		Device:   config.DeviceConfig{UserAgent: "socrates-test"},
		Breaker:  config.BreakerConfig{Disabled: true},
	}

	st := memory.New()
	sc, err := session.New(session.Options{
		BaseURL:   srv.BaseURL(),
		Transport: transport.New(nil, cfg, discard, nil),
		Store:     st,
		Logger:    discard,
	})
	require.NoError(t, err)

	return &fixture{srv: srv, store: st, api: api.New(sc)}
}

func (f *fixture) login(t *testing.T, email string) models.User {
	t.Helper()

	u, err := f.api.Users.Login(context.Background(), models.Credentials{Email: email, Password: password})
	require.NoError(t, err)
	return u
}

func TestUsers_LoginPersistsSession(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	u := f.login(t, studentEmail)
	require.Equal(t, "u1", u.ID)
	require.Equal(t, models.RoleUser, u.Role)

	cached, err := storage.LoadUser(ctx, f.store)
	require.NoError(t, err)
	require.Equal(t, u, cached)

	ok, err := storage.LoggedIn(ctx, f.store)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.store.Get(ctx, storage.KeyCookies)
	require.NoError(t, err)
}

func TestUsers_LoginFailures(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	_, err := f.api.Users.Login(ctx, models.Credentials{Email: studentEmail, Password: "wrong"})
	require.ErrorIs(t, err, apierrors.ErrUnauthorized)
	require.Zero(t, f.srv.Hits("POST /users/refresh-token"))

	_, err = f.api.Users.Login(ctx, models.Credentials{Email: " "})
	require.ErrorIs(t, err, apierrors.ErrValidation)
	require.Equal(t, 1, f.srv.Hits("POST /users/login"), "local validation must not reach the server")
}

func TestUsers_LogoutAndRefresh(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, studentEmail)

	require.NoError(t, f.api.Users.RefreshToken(ctx))
	require.Equal(t, 1, f.srv.Hits("POST /users/refresh-token"))

	require.NoError(t, f.store.Set(ctx, storage.KeyTheme, "dark"))
	require.NoError(t, f.api.Users.Logout(ctx))

	for _, k := range storage.AllKeys {
		_, err := f.store.Get(ctx, k)
		require.ErrorIs(t, err, storage.ErrNotFound, k)
	}

	_, err := f.api.Courses.GetByID(ctx, "c1")
	require.ErrorIs(t, err, apierrors.ErrSessionExpired)
}

func TestSession_ExpiredAccessRefreshedTransparently(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, studentEmail)
	f.srv.SetWallet(100)

	f.srv.ExpireSessions()
	c, err := f.api.Courses.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "Physics 101", c.Title)
	require.Equal(t, 1, f.srv.Hits("POST /users/refresh-token"))

	// тело POST повторяется после обновления.
	f.srv.ExpireSessions()
	bal, err := f.api.Payments.Purchase(ctx, models.PurchaseRequest{CourseID: "c1", PurchaseType: models.PurchaseLesson, ItemID: "l-1"})
	require.NoError(t, err)
	require.Equal(t, 60.0, bal.Balance)
	require.Equal(t, 2, f.srv.Hits("POST /users/refresh-token"))
	require.Equal(t, 2, f.srv.Hits("POST /payment/purchase"))

	ok, err := storage.LoggedIn(ctx, f.store)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCourses_GetByID(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, studentEmail)

	c, err := f.api.Courses.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, "Physics 101", c.Title)
	require.Len(t, c.Items(), 3)

	_, err = f.api.Courses.GetByID(ctx, "missing")
	require.ErrorIs(t, err, apierrors.ErrNotFound)
	require.Equal(t, apierrors.KindNotFound, apierrors.Classify(err))
}

func TestPayments(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, studentEmail)
	f.srv.SetWallet(100)

	key := models.PurchaseKey{CourseID: "c1", Type: models.PurchaseLesson, ItemID: "l-1"}

	ok, err := f.api.Payments.PurchaseStatus(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = f.api.Payments.PurchaseStatus(ctx, models.PurchaseKey{CourseID: "c1", Type: "course", ItemID: "x"})
	require.ErrorIs(t, err, apierrors.ErrValidation)

	bal, err := f.api.Payments.WalletBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, 100.0, bal.Balance)

	bal, err = f.api.Payments.Purchase(ctx, models.PurchaseRequest{CourseID: "c1", PurchaseType: models.PurchaseLesson, ItemID: "l-1"})
	require.NoError(t, err)
	require.Equal(t, 60.0, bal.Balance)

	ok, err = f.api.Payments.PurchaseStatus(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.api.Payments.Purchase(ctx, models.PurchaseRequest{CourseID: "c1", PurchaseType: models.PurchaseUnit, ItemID: "u-1"})
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "INSUFFICIENT_BALANCE", apiErr.Code)
	require.ErrorIs(t, err, apierrors.ErrValidation)
}

func TestCourseAccess(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	f := setup(t, testserver.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	f.login(t, studentEmail)

	f.srv.AddCode(testserver.Code{Code: "ABC123XYZ9", CourseID: "c1", Duration: 48 * time.Hour})

	g, err := f.api.CourseAccess.Check(ctx, "c1")
	require.NoError(t, err)
	require.False(t, g.HasAccess)
	require.Equal(t, models.AccessSourceNone, g.Source)

	g, msg, err := f.api.CourseAccess.Redeem(ctx, "c1", "ABC123XYZ9")
	require.NoError(t, err)
	require.Equal(t, "Code redeemed", msg)
	require.True(t, g.IsCode())
	require.NotNil(t, g.AccessEndAt)
	require.True(t, now.Add(48*time.Hour).Equal(*g.AccessEndAt))

	g, err = f.api.CourseAccess.Check(ctx, "c1")
	require.NoError(t, err)
	require.True(t, g.HasAccess)

	_, _, err = f.api.CourseAccess.Redeem(ctx, "c1", "ABC123XYZ9")
	var apiErr *apierrors.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "CODE_ALREADY_USED", apiErr.Code)

	_, _, err = f.api.CourseAccess.Redeem(ctx, "c1", "")
	require.ErrorIs(t, err, apierrors.ErrValidation)
	require.Equal(t, 2, f.srv.Hits("POST /course-access/redeem"))
}

func TestFinancial(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, adminEmail)

	day := func(d int) time.Time { return time.Date(2026, 9, d, 10, 0, 0, 0, time.UTC) }

	_, err := f.api.Financial.RecordIncome(ctx, models.Transaction{Amount: 500, Description: "September fees", Date: day(1)})
	require.NoError(t, err)
	_, err = f.api.Financial.RecordIncome(ctx, models.Transaction{Amount: 300, Description: "Books", Date: day(5)})
	require.NoError(t, err)
	tx, err := f.api.Financial.RecordExpense(ctx, models.Transaction{Amount: 200, Description: "Rent", Date: day(10)})
	require.NoError(t, err)
	require.Equal(t, models.TransactionExpense, tx.Type)
	require.NotEmpty(t, tx.ID)

	_, err = f.api.Financial.RecordExpense(ctx, models.Transaction{Amount: 0})
	require.ErrorIs(t, err, apierrors.ErrValidation)

	st, err := f.api.Financial.Stats(ctx, day(1), day(30))
	require.NoError(t, err)
	require.Equal(t, models.FinancialStats{TotalIncome: 800, TotalExpense: 200, NetProfit: 600}, st)

	_, err = f.api.Financial.Stats(ctx, day(30), day(1))
	require.ErrorIs(t, err, apierrors.ErrValidation)

	page, err := f.api.Financial.List(ctx, models.TransactionFilter{
		Page: 1, Limit: 1, Type: models.TransactionIncome, SortBy: "amount", SortOrder: "asc",
	})
	require.NoError(t, err)
	require.Equal(t, models.Pagination{Page: 1, Limit: 1, Total: 2, Pages: 2}, page.Pagination)
	require.Len(t, page.Transactions, 1)
	require.Equal(t, 300.0, page.Transactions[0].Amount)

	page, err = f.api.Financial.List(ctx, models.TransactionFilter{Search: "rent"})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 1)

	rep, err := f.api.Financial.Report(ctx, day(1), day(30), models.ReportMonthly)
	require.NoError(t, err)
	require.Equal(t, []models.ReportRow{{Period: "2026-09", Income: 800, Expense: 200, Profit: 600}}, rep.Rows)
}

func TestFinancial_PaymentStatus(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, adminEmail)

	f.srv.AddGroup(models.Group{ID: "g1", Name: "Sat 10am"}, []models.StudentPaymentStatus{
		{StudentID: "s1", StudentName: "Ali", Paid: true, Amount: 250},
		{StudentID: "s2", StudentName: "Hana"},
	})

	p := models.Period{Month: 10, Year: 2026}
	ps, err := f.api.Financial.PaymentStatus(ctx, "g1", p)
	require.NoError(t, err)
	require.Equal(t, 10, ps.Month)
	require.Len(t, ps.Students, 2)
	require.True(t, ps.Students[0].Paid)

	_, err = f.api.Financial.PaymentStatus(ctx, "g1", models.Period{Month: 13, Year: 2026})
	require.ErrorIs(t, err, apierrors.ErrValidation)

	groups, err := f.api.Groups.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "Sat 10am", groups[0].Name)
}

func TestNotifications(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, studentEmail)

	f.srv.AddNotification(models.Notification{ID: "n1", Title: "New lesson"})
	f.srv.AddNotification(models.Notification{ID: "n2", Title: "Exam"})
	f.srv.AddNotification(models.Notification{ID: "n3", Title: "Holiday"})

	require.NoError(t, f.api.Notifications.MarkRead(ctx, "n1"))
	require.ErrorIs(t, f.api.Notifications.MarkRead(ctx, "missing"), apierrors.ErrNotFound)

	n, err := f.api.Notifications.MarkAllRead(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list, err := f.api.Notifications.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, v := range list {
		require.True(t, v.Read)
	}
}

func TestInstructors(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()

	f.login(t, studentEmail)
	_, err := f.api.Instructors.Create(ctx, models.Instructor{Name: "Dr. Samir"})
	require.ErrorIs(t, err, apierrors.ErrForbidden)

	f.login(t, adminEmail)
	_, err = f.api.Instructors.Create(ctx, models.Instructor{})
	require.ErrorIs(t, err, apierrors.ErrValidation)

	in, err := f.api.Instructors.Create(ctx, models.Instructor{Name: "Dr. Samir", Specialization: "Physics"})
	require.NoError(t, err)
	require.NotEmpty(t, in.ID)

	in.Bio = "20 years"
	up, err := f.api.Instructors.Update(ctx, in.ID, in)
	require.NoError(t, err)
	require.Equal(t, "20 years", up.Bio)

	all, err := f.api.Instructors.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	mine, err := f.api.Instructors.MyCourses(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "c1", mine[0].ID)

	require.NoError(t, f.api.Instructors.Delete(ctx, in.ID))
	require.ErrorIs(t, f.api.Instructors.Delete(ctx, in.ID), apierrors.ErrNotFound)
}

func TestOfflineGrades(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, adminEmail)

	g, err := f.api.OfflineGrades.Create(ctx, models.OfflineGrade{
		StudentID: "s1", GroupID: "g1", ExamTitle: "Midterm", Score: 18, MaxScore: 20,
	})
	require.NoError(t, err)

	_, err = f.api.OfflineGrades.Create(ctx, models.OfflineGrade{StudentID: "s1", ExamTitle: "Midterm", Score: 25, MaxScore: 20})
	require.ErrorIs(t, err, apierrors.ErrValidation)

	g.Score = 19
	_, err = f.api.OfflineGrades.Update(ctx, g.ID, g)
	require.NoError(t, err)

	list, err := f.api.OfflineGrades.List(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 19.0, list[0].Score)

	require.NoError(t, f.api.OfflineGrades.Delete(ctx, g.ID))

	tpl, err := f.api.OfflineGrades.Template(ctx)
	require.NoError(t, err)
	require.Equal(t, testserver.TemplateBytes, tpl)

	sheet := "studentId,examTitle,score,maxScore\ns1,Final,17,20\ns2,Final,12,20\n"
	res, err := f.api.OfflineGrades.Upload(ctx, "grades.xlsx", strings.NewReader(sheet))
	require.NoError(t, err)
	require.Equal(t, 2, res.Created)

	name, body := f.srv.LastUpload()
	require.Equal(t, "grades.xlsx", name)
	require.Equal(t, sheet, string(body))

	_, err = f.api.OfflineGrades.Upload(ctx, "", strings.NewReader(sheet))
	require.ErrorIs(t, err, apierrors.ErrValidation)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, studentEmail)

	res, err := f.api.Search.Courses(ctx, "physics")
	require.NoError(t, err)
	require.Len(t, res, 1)

	res, err = f.api.Search.Courses(ctx, "chemistry")
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestDeviceNotAuthorized_Surfaced(t *testing.T) {
	t.Parallel()

	f := setup(t)
	ctx := context.Background()
	f.login(t, studentEmail)
	f.srv.BlockDevice(true)

	_, err := f.api.Courses.GetByID(ctx, "c1")
	require.ErrorIs(t, err, apierrors.ErrDeviceNotAuthorized)
	require.Equal(t, apierrors.KindDeviceNotAuthorized, apierrors.Classify(err))
	require.Contains(t, apierrors.UserMessage(err), "device_not_authorized")
	require.Zero(t, f.srv.Hits("POST /users/refresh-token"))
}
