package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/andrebq/teta/auth"
	"github.com/andrebq/teta/credstore"
	"github.com/andrebq/teta/internal/httpio"
	"github.com/andrebq/teta/internal/logutil"
	"github.com/julienschmidt/httprouter"
)

type (
	AccountService interface {
		Register(ctx context.Context, username, password string) (credstore.User, error)
		Login(ctx context.Context, username, password string) (auth.LoginResult, error)
		DeleteAccount(ctx context.Context, username, password string) error
	}

	message struct {
		Message string `json:"message"`
	}

	tokenResponse struct {
		Token          string `json:"token"`
		TokenType      string `json:"token_type"`
		WelcomeMessage string `json:"welcome_message"`
	}
)

const (
	registeredMessage    = "Пользователь успешно зарегистрирован"
	deletedMessage       = "Пользователь успешно удален"
	duplicateDetail      = "Пользователь с таким именем уже существует"
	badCredentialsDetail = "Неверное имя пользователя или пароль"
	passwordTooLong      = "Пароль слишком длинный"
	internalDetail       = "Internal Server Error"
)

// Mount adds /register, /login and /delete-user to router.
func Mount(router *httprouter.Router, accounts AccountService) {
	router.HandlerFunc("POST", "/register", register(accounts))
	router.HandlerFunc("POST", "/login", login(accounts))
	router.HandlerFunc("POST", "/delete-user", deleteUser(accounts))
}

func register(accounts AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := httpio.DecodeCredentials(w, r, false)
		if err != nil {
			httpio.WriteDecodeError(w, err)
			return
		}
		_, err = accounts.Register(r.Context(), cred.Username, cred.Password)
		switch {
		case errors.Is(err, auth.ErrDuplicateUsername):
			httpio.WriteDetail(w, http.StatusBadRequest, duplicateDetail)
		case errors.Is(err, auth.ErrPasswordTooLong):
			httpio.WriteDetail(w, http.StatusBadRequest, passwordTooLong)
		case err != nil:
			internalError(w, r, err)
		default:
			httpio.WriteJSON(w, http.StatusOK, message{Message: registeredMessage})
		}
	}
}

func login(accounts AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := httpio.DecodeCredentials(w, r, true)
		if err != nil {
			httpio.WriteDecodeError(w, err)
			return
		}
		res, err := accounts.Login(r.Context(), cred.Username, cred.Password)
		switch {
		case errors.Is(err, auth.ErrAuthFailure):
			httpio.WriteUnauthorized(w, badCredentialsDetail)
		case err != nil:
			internalError(w, r, err)
		default:
			httpio.WriteJSON(w, http.StatusOK, tokenResponse{
				Token:          res.Token,
				TokenType:      res.TokenType,
				WelcomeMessage: res.WelcomeMessage,
			})
		}
	}
}

func deleteUser(accounts AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := httpio.DecodeCredentials(w, r, false)
		if err != nil {
			httpio.WriteDecodeError(w, err)
			return
		}
		err = accounts.DeleteAccount(r.Context(), cred.Username, cred.Password)
		switch {
		case errors.Is(err, auth.ErrAuthFailure):
			httpio.WriteUnauthorized(w, badCredentialsDetail)
		case err != nil:
			internalError(w, r, err)
		default:
			httpio.WriteJSON(w, http.StatusOK, message{Message: deletedMessage})
		}
	}
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	log := logutil.GetOrDefault(r.Context())
	log.Error().Err(err).Str("path", r.URL.Path).Msg("Unable to process request")
	httpio.WriteDetail(w, http.StatusInternalServerError, internalDetail)
}
