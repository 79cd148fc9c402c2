package errors

import (
	"context"
	"errors"
	"net"
)

// Kind — категория сбоя для реакции клиента.
type Kind string

const (
	KindNone                Kind = ""
	KindNetwork             Kind = "network"
	KindTimeout             Kind = "timeout"
	KindCanceled            Kind = "canceled"
	KindAuthExpired         Kind = "auth_expired"
	KindDeviceNotAuthorized Kind = "device_not_authorized"
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindServer              Kind = "server"
	KindUnknown             Kind = "unknown"
)

// Classify относит ошибку к категории. Порядок важен: истёкшая сессия
// оборачивает исходный 401, поэтому проверяется раньше прочих.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var netErr net.Error
	switch {
	case errors.Is(err, ErrSessionExpired), errors.Is(err, ErrUnauthorized):
		return KindAuthExpired
	case errors.Is(err, ErrDeviceNotAuthorized):
		return KindDeviceNotAuthorized
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrUnavailable), errors.As(err, &netErr):
		return KindNetwork
	case errors.Is(err, ErrServer):
		return KindServer
	}

	return KindUnknown
}

// Сообщения для пользователя; интерфейс портала арабский.
const (
	msgNetwork        = "تعذر الاتصال بالخادم، تحقق من اتصالك بالإنترنت"
	msgTimeout        = "انتهت مهلة الطلب، حاول مرة أخرى"
	msgSessionExpired = "انتهت الجلسة، يرجى تسجيل الدخول مرة أخرى"
	msgDevice         = "هذا الجهاز غير مصرح له بالدخول إلى الحساب"
	msgValidation     = "البيانات المدخلة غير صحيحة"
	msgNotFound       = "العنصر المطلوب غير موجود"
	msgGeneric        = "حدث خطأ غير متوقع، حاول لاحقاً"
)

// UserMessage — текст тоста для ошибки. Сообщения сервера о валидации и
// устройстве показываются как есть.
func UserMessage(err error) string {
	var apiErr *Error
	var vErr *ValidationError

	switch Classify(err) {
	case KindNone:
		return ""
	case KindNetwork:
		return msgNetwork
	case KindTimeout:
		return msgTimeout
	case KindAuthExpired:
		return msgSessionExpired
	case KindDeviceNotAuthorized:
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return msgDevice
	case KindValidation:
		if errors.As(err, &vErr) {
			return vErr.Message
		}
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return msgValidation
	case KindNotFound:
		return msgNotFound
	}

	return msgGeneric
}
