// Package service glues the account and branch APIs into a single handler.
package service

import (
	"context"
	"net/http"
	"time"

	authapi "github.com/andrebq/teta/auth/api"
	"github.com/andrebq/teta/branches"
	branchesapi "github.com/andrebq/teta/branches/api"
	"github.com/andrebq/teta/internal/httpio"
	"github.com/andrebq/teta/internal/logutil"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

type (
	Deps struct {
		Accounts authapi.AccountService
		Tokens   authapi.TokenVerifier
		Sessions branchesapi.SessionCorrelator
		Table    *branches.Table
		SimCards *branches.SimCards
	}

	homeResponse struct {
		Message      string `json:"message"`
		DefaultUsers string `json:"default_users"`
	}

	rootResponse struct {
		Message string `json:"message"`
	}
)

const (
	homeMessage  = "Добро пожаловать в учебный веб-сервис TETA для отладки HTTP-скриптов"
	defaultUsers = "Доступны пользователи по умолчанию demouser1-demouser10 с паролями Password1-Password10"

	description = `
    Учебный веб-сервис для отладки HTTP-скриптов.

    ## Функциональность

    Сервис предоставляет следующие возможности:

    1. **Регистрация и авторизация пользователей** - создание учетных записей и получение токенов доступа
    2. **Работа с филиалами** - получение списка филиалов и информации о доступных сим-картах
    3. **Работа с различными типами параметров запросов**:
       - Параметры в URL
       - Заголовки (Headers)
       - Токены авторизации
       - Cookie-параметры

    ## Учетные данные по умолчанию

    Для тестирования API можно использовать следующие учетные данные:
    - Пользователи: demouser1, demouser2, ..., demouser10
    - Пароли: Password1, Password2, ..., Password10
    `
)

// AsHandler returns the complete HTTP API, every request is access logged with
// the logger found in ctx.
func AsHandler(ctx context.Context, deps Deps) http.Handler {
	router := httprouter.New()
	router.HandlerFunc("GET", "/", root)
	router.HandlerFunc("GET", "/home", home)
	authapi.Mount(router, deps.Accounts)
	branchesapi.Mount(router, branchesapi.Deps{
		Realm:    authapi.NewRealm(deps.Tokens),
		Sessions: deps.Sessions,
		Table:    deps.Table,
		SimCards: deps.SimCards,
	})
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpio.WriteDetail(w, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpio.WriteDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("Handler panic")
		httpio.WriteDetail(w, http.StatusInternalServerError, "Internal Server Error")
	}
	return withAccessLog(logutil.GetOrDefault(ctx), router)
}

func withAccessLog(log zerolog.Logger, next http.Handler) http.Handler {
	h := bridgeLogger(next)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request served")
	})(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	return hlog.NewHandler(log)(h)
}

// bridgeLogger exposes the request logger through logutil so the rest of the
// code does not need to know about hlog
func bridgeLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logutil.WithLogger(r.Context(), *hlog.FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func root(w http.ResponseWriter, r *http.Request) {
	httpio.WriteJSON(w, http.StatusOK, rootResponse{Message: description})
}

func home(w http.ResponseWriter, r *http.Request) {
	httpio.WriteJSON(w, http.StatusOK, homeResponse{
		Message:      homeMessage,
		DefaultUsers: defaultUsers,
	})
}
