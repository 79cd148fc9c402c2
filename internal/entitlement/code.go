package entitlement

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	apierrors "github.com/MohamedElaraby99/socrates-sub000/internal/errors"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8,12}$`)

// ErrInvalidCodeFormat — код не прошёл локальную проверку; запрос не отправлялся.
// Вместе с ним всегда оборачивается apierrors.ErrValidation.
var ErrInvalidCodeFormat = errors.New("invalid code format")

const msgInvalidCodeFormat = "يجب أن يتكون الكود من 8 إلى 12 حرفًا أو رقمًا باللغة الإنجليزية"

// NormalizeCode переводит код в верхний регистр и убирает всё, кроме A-Z и 0-9.
func NormalizeCode(raw string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, strings.ToUpper(raw))
}

// ValidateCode возвращает нормализованный код или ошибку формата.
func ValidateCode(raw string) (string, error) {
	code := NormalizeCode(raw)
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("%w: %w", ErrInvalidCodeFormat, apierrors.NewValidation(msgInvalidCodeFormat))
	}

	return code, nil
}

// RedemptionReason — категория отказа при активации кода.
type RedemptionReason string

const (
	ReasonInvalidOrExpired RedemptionReason = "invalid_or_expired"
	ReasonNotForCourse     RedemptionReason = "not_for_course"
	ReasonAccessExpired    RedemptionReason = "access_expired"
	ReasonCourseNotFound   RedemptionReason = "course_not_found"
	ReasonCodeRequired     RedemptionReason = "code_required"
	ReasonAlreadyUsed      RedemptionReason = "already_used"
	ReasonGeneric          RedemptionReason = "generic"
)

var reasonMessages = map[RedemptionReason]string{
	ReasonInvalidOrExpired: "كود الوصول غير صالح أو منتهي الصلاحية",
	ReasonNotForCourse:     "هذا الكود غير صالح لهذا الكورس",
	ReasonAccessExpired:    "انتهت فترة الوصول الخاصة بهذا الكود",
	ReasonCourseNotFound:   "الكورس غير موجود",
	ReasonCodeRequired:     "يرجى إدخال كود الوصول",
	ReasonAlreadyUsed:      "تم استخدام هذا الكود من قبل",
}

// reasonByCode — машиночитаемые коды ответа redeem.
var reasonByCode = map[string]RedemptionReason{
	"INVALID_CODE":        ReasonInvalidOrExpired,
	"CODE_NOT_FOR_COURSE": ReasonNotForCourse,
	"ACCESS_EXPIRED":      ReasonAccessExpired,
	"COURSE_NOT_FOUND":    ReasonCourseNotFound,
	"CODE_REQUIRED":       ReasonCodeRequired,
	"CODE_ALREADY_USED":   ReasonAlreadyUsed,
}

// reasonBySubstring — разбор текста для серверов без code. Порядок важен:
// «Invalid or expired code» содержит «expired».
var reasonBySubstring = []struct {
	sub    string
	reason RedemptionReason
}{
	{"not valid for this course", ReasonNotForCourse},
	{"already been used", ReasonAlreadyUsed},
	{"already used", ReasonAlreadyUsed},
	{"code is required", ReasonCodeRequired},
	{"course not found", ReasonCourseNotFound},
	{"access window", ReasonAccessExpired},
	{"access has expired", ReasonAccessExpired},
	{"invalid or expired", ReasonInvalidOrExpired},
	{"invalid code", ReasonInvalidOrExpired},
}

// RedemptionError — отказ в активации кода с сообщением для пользователя.
type RedemptionError struct {
	Reason  RedemptionReason
	Message string
	Err     error
}

func (e *RedemptionError) Error() string {
	return fmt.Sprintf("redeem %s: %v", e.Reason, e.Err)
}

func (e *RedemptionError) Unwrap() error { return e.Err }

// ClassifyRedemption сначала смотрит на code ответа, затем на текст.
// Нераспознанный ответ сервера — ReasonGeneric с его же сообщением.
func ClassifyRedemption(err error) *RedemptionError {
	if err == nil {
		return nil
	}

	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) {
		return &RedemptionError{Reason: ReasonGeneric, Message: apierrors.UserMessage(err), Err: err}
	}

	reason, ok := reasonByCode[apiErr.Code]
	if !ok {
		reason = reasonFromMessage(apiErr.Message)
	}

	if reason == ReasonGeneric {
		msg := apiErr.Message
		if msg == "" {
			msg = apierrors.UserMessage(err)
		}
		return &RedemptionError{Reason: reason, Message: msg, Err: err}
	}

	return &RedemptionError{Reason: reason, Message: reasonMessages[reason], Err: err}
}

func reasonFromMessage(msg string) RedemptionReason {
	msg = strings.ToLower(msg)
	for _, v := range reasonBySubstring {
		if strings.Contains(msg, v.sub) {
			return v.reason
		}
	}

	return ReasonGeneric
}
