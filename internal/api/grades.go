package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
	"github.com/MohamedElaraby99/socrates-sub000/internal/transport"
)

// XLSXContentType — MIME шаблона оценок.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	msgInvalidGrade = "بيانات الدرجة غير مكتملة أو غير صحيحة"
	msgFileRequired = "يرجى اختيار ملف"
)

type OfflineGrades struct {
	d *doer
}

// List — оценки; groupID пустой — все группы.
func (g *OfflineGrades) List(ctx context.Context, groupID string) ([]models.OfflineGrade, error) {
	const op = "api/OfflineGrades.List"

	var q url.Values
	if groupID != "" {
		q = url.Values{"groupId": {groupID}}
	}

	var out []models.OfflineGrade
	if _, err := g.d.call(ctx, http.MethodGet, "/offline-grades", q, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (g *OfflineGrades) Create(ctx context.Context, in models.OfflineGrade) (models.OfflineGrade, error) {
	const op = "api/OfflineGrades.Create"

	if !validGrade(in) {
		return models.OfflineGrade{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgInvalidGrade))
	}

	var out models.OfflineGrade
	if _, err := g.d.call(ctx, http.MethodPost, "/offline-grades", nil, in, &out); err != nil {
		return models.OfflineGrade{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (g *OfflineGrades) Update(ctx context.Context, id string, in models.OfflineGrade) (models.OfflineGrade, error) {
	const op = "api/OfflineGrades.Update"

	if !validGrade(in) {
		return models.OfflineGrade{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgInvalidGrade))
	}

	var out models.OfflineGrade
	if _, err := g.d.call(ctx, http.MethodPut, "/offline-grades/"+esc(id), nil, in, &out); err != nil {
		return models.OfflineGrade{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (g *OfflineGrades) Delete(ctx context.Context, id string) error {
	const op = "api/OfflineGrades.Delete"

	if _, err := g.d.call(ctx, http.MethodDelete, "/offline-grades/"+esc(id), nil, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Template скачивает Excel-шаблон для загрузки оценок.
func (g *OfflineGrades) Template(ctx context.Context) ([]byte, error) {
	const op = "api/OfflineGrades.Template"

	req, err := g.d.newRequest(ctx, http.MethodGet, "/offline-grades/template", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", XLSXContentType)

	b, err := g.d.send(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

// Upload загружает заполненный шаблон в поле file.
func (g *OfflineGrades) Upload(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error) {
	const op = "api/OfflineGrades.Upload"

	if r == nil || blank(filename) {
		return models.UploadResult{}, fmt.Errorf("%s: %w", op, apierrors.NewValidation(msgFileRequired))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: read file: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}

	ct := mw.FormDataContentType()
	req, err := g.d.newRequest(transport.WithMultipartBody(ctx, ct), http.MethodPost, "/offline-grades/upload", nil, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", ct)

	raw, err := g.d.send(req)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}

	var out models.UploadResult
	if _, err := decodeEnvelope(raw, &out); err != nil {
		return models.UploadResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func validGrade(g models.OfflineGrade) bool {
	return !blank(g.StudentID) && !blank(g.ExamTitle) && g.MaxScore > 0 && g.Score >= 0 && g.Score <= g.MaxScore
}
