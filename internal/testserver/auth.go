package testserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/MohamedElaraby99/socrates-sub000/internal/models"
)

type ctxUser struct{}

func userFrom(ctx context.Context) models.User {
	u, _ := ctx.Value(ctxUser{}).(models.User)
	return u
}

func (s *Server) userByID(id string) (models.User, bool) {
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}

	return models.User{}, false
}

// authenticated пропускает запрос с действующей cookie accessToken.
func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(CookieAccess)
		if err != nil {
			s.writeFail(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not authorized, please login")
			return
		}

		s.mu.Lock()
		id, ok := s.access[ck.Value]
		u, found := s.userByID(id)
		s.mu.Unlock()

		if !ok || !found {
			s.writeFail(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token expired")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUser{}, u)))
	})
}

// deviceCheck запоминает x-device-info и отвечает 403, если устройство заблокировано.
func (s *Server) deviceCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		if v := r.Header.Get("x-device-info"); v != "" {
			s.deviceInfo = v
		}
		blocked := s.deviceBlocked
		s.mu.Unlock()

		if blocked {
			writeNested(w, r, http.StatusForbidden, "DEVICE_NOT_AUTHORIZED", "device_not_authorized: الجهاز غير مصرح له")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) issue(w http.ResponseWriter, userID string, withRefresh bool) {
	access := uuid.NewString()
	s.access[access] = userID
	http.SetCookie(w, &http.Cookie{Name: CookieAccess, Value: access, Path: "/", HttpOnly: true})

	if withRefresh {
		rt := uuid.NewString()
		s.refresh[rt] = userID
		http.SetCookie(w, &http.Cookie{Name: CookieRefresh, Value: rt, Path: "/", HttpOnly: true})
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := decode(r, &in); err != nil || in.Email == "" || in.Password == "" {
		s.writeFail(w, http.StatusBadRequest, "VALIDATION", "Email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[in.Email]
	if !ok || a.password != in.Password {
		s.writeFail(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	s.issue(w, a.user.ID, true)
	writeData(w, http.StatusOK, a.user)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if ck, err := r.Cookie(CookieAccess); err == nil {
		delete(s.access, ck.Value)
	}
	if ck, err := r.Cookie(CookieRefresh); err == nil {
		delete(s.refresh, ck.Value)
	}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: CookieAccess, Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{Name: CookieRefresh, Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Logged out"})
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	gate := s.refreshGate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failRefresh {
		s.writeFail(w, http.StatusUnauthorized, "REFRESH_EXPIRED", "Refresh token expired")
		return
	}

	ck, err := r.Cookie(CookieRefresh)
	if err != nil {
		s.writeFail(w, http.StatusUnauthorized, "REFRESH_MISSING", "Refresh token missing")
		return
	}

	id, ok := s.refresh[ck.Value]
	if !ok {
		s.writeFail(w, http.StatusUnauthorized, "REFRESH_INVALID", "Refresh token invalid")
		return
	}

	s.issue(w, id, false)
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Token refreshed"})
}
