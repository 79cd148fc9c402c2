// device собирает диагностические сведения об устройстве клиента для
// заголовка x-device-info. Сервер использует их для привязки сессии к устройству.
package device

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/MohamedElaraby99/socrates-sub000/internal/config"
)

// HeaderName — заголовок, в котором уходит Info.
const HeaderName = "x-device-info"

// Info — содержимое заголовка; имена полей совпадают с тем, что шлёт веб-клиент.
type Info struct {
	Platform         string `json:"platform"`
	ScreenResolution string `json:"screenResolution"`
	Timezone         string `json:"timezone"`
	UserAgent        string `json:"userAgent"`
}

// Collect собирает Info: платформа из runtime, часовой пояс из TZ/time.Local,
// экран и user-agent из конфигурации.
func Collect(cfg config.DeviceConfig) Info {
	return Info{
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		ScreenResolution: cfg.Screen,
		Timezone:         Timezone(),
		UserAgent:        cfg.UserAgent,
	}
}

// Timezone возвращает IANA-имя часового пояса процесса или "UTC".
func Timezone() string {
	if tz := os.Getenv("TZ"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc.String()
		}
	}

	if name := time.Local.String(); name != "" && name != "Local" {
		return name
	}

	return "UTC"
}

// Header кодирует Info в значение заголовка.
func Header(info Info) (string, error) {
	const op = "device/Header"

	b, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}
