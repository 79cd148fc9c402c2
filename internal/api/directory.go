package api

import (
	"context"
	"fmt"
	"net/http"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

const msgInstructorName = "اسم المدرس مطلوب"

type Notifications struct {
	d *doer
}

func (n *Notifications) List(ctx context.Context) ([]models.Notification, error) {
	const op = "api/Notifications.List"

	var out []models.Notification
	if _, err := n.d.call(ctx, http.MethodGet, "/notifications/notifications", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (n *Notifications) MarkRead(ctx context.Context, id string) error {
	const op = "api/Notifications.MarkRead"

	if _, err := n.d.call(ctx, http.MethodPatch, "/notifications/notifications/"+esc(id)+"/read", nil, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// MarkAllRead возвращает число отмеченных уведомлений.
func (n *Notifications) MarkAllRead(ctx context.Context) (int, error) {
	const op = "api/Notifications.MarkAllRead"

	var out struct {
		Modified int `json:"modified"`
	}
	if _, err := n.d.call(ctx, http.MethodPatch, "/notifications/notifications/read-all", nil, nil, &out); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return out.Modified, nil
}

type Instructors struct {
	d *doer
}

func (i *Instructors) All(ctx context.Context) ([]models.Instructor, error) {
	const op = "api/Instructors.All"

	var out []models.Instructor
	if _, err := i.d.call(ctx, http.MethodGet, "/instructors/all", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// MyCourses — курсы текущего преподавателя.
func (i *Instructors) MyCourses(ctx context.Context) ([]models.Course, error) {
	const op = "api/Instructors.MyCourses"

	var out []models.Course
	if _, err := i.d.call(ctx, http.MethodGet, "/instructors/my-courses", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (i *Instructors) Create(ctx context.Context, in models.Instructor) (models.Instructor, error) {
	const op = "api/Instructors.Create"

	if blank(in.Name) {
		return models.Instructor{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgInstructorName))
	}

	var out models.Instructor
	if _, err := i.d.call(ctx, http.MethodPost, "/instructors", nil, in, &out); err != nil {
		return models.Instructor{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (i *Instructors) Update(ctx context.Context, id string, in models.Instructor) (models.Instructor, error) {
	const op = "api/Instructors.Update"

	if blank(in.Name) {
		return models.Instructor{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgInstructorName))
	}

	var out models.Instructor
	if _, err := i.d.call(ctx, http.MethodPut, "/instructors/"+esc(id), nil, in, &out); err != nil {
		return models.Instructor{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (i *Instructors) Delete(ctx context.Context, id string) error {
	const op = "api/Instructors.Delete"

	if _, err := i.d.call(ctx, http.MethodDelete, "/instructors/"+esc(id), nil, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
