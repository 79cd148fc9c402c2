package config

import (
	"slices"
	"strings"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// ResolveBaseURL выбирает адрес бэкенда. Чистая функция от конфигурации,
// вызывается один раз при старте.
//
// Порядок:
//  1. явный BaseURL — как есть;
//  2. режим разработки, localhost/127.0.0.1 или порт dev-сервера — DevURL;
//  3. иначе — ProdURL.
func ResolveBaseURL(a APIConfig) string {
	if a.BaseURL != "" {
		return a.BaseURL
	}

	if a.isDevMode() || isLoopbackHost(a.OriginHost) || a.isDevPort() {
		return a.DevURL
	}

	return a.ProdURL
}

// IsDevelopment — режим разработки или локальный хост. Вне разработки
// к запросам добавляется диагностический заголовок устройства.
func IsDevelopment(a APIConfig) bool {
	return a.isDevMode() || isLoopbackHost(a.OriginHost)
}

func (a APIConfig) isDevMode() bool {
	return strings.EqualFold(a.Mode, ModeDevelopment)
}

func (a APIConfig) isDevPort() bool {
	return a.OriginPort != "" && slices.Contains(a.DevPorts, a.OriginPort)
}

func isLoopbackHost(h string) bool {
	h = strings.ToLower(strings.TrimSpace(h))
	return h == "localhost" || h == "127.0.0.1"
}
