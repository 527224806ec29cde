package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"

	"github.com/andrebq/teta/auth"
	"github.com/andrebq/teta/internal/httpio"
	"github.com/andrebq/teta/internal/logutil"
)

type (
	TokenVerifier interface {
		Verify(ctx context.Context, token string) (int64, error)
	}

	SecurityRealm struct {
		tokens TokenVerifier
	}

	userKey byte
)

const (
	invalidTokenDetail = "Недействительный токен авторизации"
	notAuthenticated   = "Not authenticated"
)

var (
	bearerTokenRE = regexp.MustCompile(`^(?i:bearer) ([^\s]+)$`)
	currentUser   = userKey(1)
)

func NewRealm(tokens TokenVerifier) *SecurityRealm {
	return &SecurityRealm{tokens: tokens}
}

// Protect only calls sensitive when the request carries a valid bearer token,
// the owner of the token is available to it through UserID.
func (s *SecurityRealm) Protect(sensitive http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logutil.GetOrDefault(ctx)
		groups := bearerTokenRE.FindStringSubmatch(r.Header.Get("Authorization"))
		if len(groups) == 0 {
			httpio.WriteUnauthorized(w, notAuthenticated)
			return
		}
		uid, err := s.tokens.Verify(ctx, groups[1])
		if errors.Is(err, auth.ErrInvalidToken) {
			httpio.WriteUnauthorized(w, invalidTokenDetail)
			return
		} else if err != nil {
			log.Error().Err(err).Msg("Unexpected error when checking for token in the credential store")
			httpio.WriteDetail(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		ctx = context.WithValue(ctx, currentUser, uid)
		ctx = logutil.WithLogger(ctx, log.With().Int64("user_id", uid).Logger())
		sensitive.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the user authenticated by SecurityRealm.Protect
func UserID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(currentUser).(int64)
	return v, ok
}
