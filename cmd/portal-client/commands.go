package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/MohamedElaraby99/socrates-sub000/internal/api"
	"github.com/MohamedElaraby99/socrates-sub000/internal/course"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/internal/notify"
	"github.com/MohamedElaraby99/socrates-sub000/internal/storage"
)

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: login <email> <password>", errUsage)
	}

	u, err := a.api.Users.Login(ctx, models.Credentials{Email: args[0], Password: args[1]})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "logged in as %s (%s)\n", u.FullName, u.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.api.Users.Logout(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "logged out")
	return nil
}

// currentUser — пользователь из хранилища; без входа команды курса не работают.
func (a *app) currentUser(ctx context.Context) (models.User, error) {
	u, err := storage.LoadUser(ctx, a.store)
	if errors.Is(err, storage.ErrNotFound) {
		return models.User{}, errors.New("not logged in: run login first")
	}

	return u, err
}

func (a *app) openCourse(ctx context.Context, courseID string) (*course.Controller, error) {
	u, err := a.currentUser(ctx)
	if err != nil {
		return nil, err
	}

	c := course.New(u, course.Deps{
		Courses:      a.api.Courses,
		Payments:     a.api.Payments,
		Access:       a.api.CourseAccess,
		Notifier:     notify.Multi{a.notifier, printer{w: a.out}},
		Metrics:      a.metrics,
		Concurrency:  a.cfg.Access.PurchaseConcurrency,
		PollInterval: a.cfg.Access.PollInterval,
	})
	if err := c.Open(ctx, courseID); err != nil {
		return nil, err
	}

	return c, nil
}

func (a *app) course(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: course <courseId>", errUsage)
	}

	c, err := a.openCourse(ctx, args[0])
	if err != nil {
		return err
	}

	return a.printCourse(c)
}

func (a *app) printCourse(c *course.Controller) error {
	crs, err := c.Course()
	if err != nil {
		return err
	}
	items, err := c.Items()
	if err != nil {
		return err
	}
	ev, err := c.Evaluator()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s)\n", crs.Title, crs.ID)
	if g := ev.Grant(); g.IsCode() && g.AccessEndAt != nil {
		state := "active"
		if ev.GrantExpired() {
			state = "expired"
		}
		fmt.Fprintf(a.out, "code access %s until %s\n", state, g.AccessEndAt.Local().Format(time.DateTime))
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tTITLE\tPRICE\tVIDEOS\tPDFS\tEXAMS\tACCESS")
	for _, it := range items {
		access := "locked"
		if it.Watchable {
			access = "open"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%d\t%d\t%s\n",
			it.Type, it.ID, it.Title, it.Price, it.Counts.Videos, it.Counts.PDFs, it.Counts.Exams, access)
	}

	return tw.Flush()
}

func (a *app) redeem(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: redeem <courseId> <code>", errUsage)
	}

	c, err := a.openCourse(ctx, args[0])
	if err != nil {
		return err
	}

	if _, err := c.Redeem(ctx, args[1]); err != nil {
		return err
	}

	return a.printCourse(c)
}

func (a *app) purchase(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: purchase <courseId> <lesson|unit> <itemId>", errUsage)
	}

	typ := models.PurchaseType(args[1])
	if !typ.Valid() {
		return fmt.Errorf("%w: purchase type must be lesson or unit", errUsage)
	}

	c, err := a.openCourse(ctx, args[0])
	if err != nil {
		return err
	}

	bal, err := c.Purchase(ctx, typ, args[2])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "wallet balance: %.2f %s\n", bal.Balance, bal.Currency)
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: watch <courseId>", errUsage)
	}

	c, err := a.openCourse(ctx, args[0])
	if err != nil {
		return err
	}
	if err := a.printCourse(c); err != nil {
		return err
	}

	a.serveMetrics(ctx)

	return c.Watch(ctx)
}

func (a *app) notifications(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	readAll := fs.Bool("read-all", false, "mark every notification as read")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if *readAll {
		n, err := a.api.Notifications.MarkAllRead(ctx)
		if err != nil {
			return err
		}
		a.log.Info("notifications_read", slog.Int("modified", n))
	}

	list, err := a.api.Notifications.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREAD\tCREATED\tTITLE")
	for _, n := range list {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", n.ID, n.Read, n.CreatedAt.Local().Format(time.DateOnly), n.Title)
	}

	return tw.Flush()
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fromS := fs.String("from", "", "start date "+api.DateLayout)
	toS := fs.String("to", "", "end date "+api.DateLayout)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	from, err := parseDate(*fromS)
	if err != nil {
		return err
	}
	to, err := parseDate(*toS)
	if err != nil {
		return err
	}

	st, err := a.api.Financial.Stats(ctx, from, to)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "income: %.2f\nexpense: %.2f\nnet profit: %.2f\n", st.TotalIncome, st.TotalExpense, st.NetProfit)
	return nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(api.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %w", errUsage, s, err)
	}

	return t, nil
}

// printer выводит уведомления пользователю в консоль.
type printer struct {
	w io.Writer
}

func (p printer) Notify(_ context.Context, n notify.Notice) {
	prefix := "[" + string(n.Kind) + "]"
	if n.Persistent {
		prefix = "[!] " + prefix
	}

	fmt.Fprintln(p.w, prefix, n.Message)
}
