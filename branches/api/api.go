package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/andrebq/teta/auth"
	authapi "github.com/andrebq/teta/auth/api"
	"github.com/andrebq/teta/branches"
	"github.com/andrebq/teta/internal/httpio"
	"github.com/andrebq/teta/internal/logutil"
	"github.com/julienschmidt/httprouter"
)

type (
	Protector interface {
		Protect(http.Handler) http.Handler
	}

	SessionCorrelator interface {
		Begin(ctx context.Context, userID int64) (string, error)
		Check(ctx context.Context, userID int64, candidate string) error
	}

	Deps struct {
		Realm    Protector
		Sessions SessionCorrelator
		Table    *branches.Table
		SimCards *branches.SimCards
	}

	listResponse struct {
		Branches  []branches.Branch `json:"branches"`
		SessionID string            `json:"session_id"`
		Message   string            `json:"message"`
	}

	simCardsResponse struct {
		BranchID          int    `json:"branch_id"`
		BranchName        string `json:"branch_name"`
		AvailableSimCards int    `json:"available_sim_cards"`
		SessionID         string `json:"session_id"`
	}
)

const (
	SessionCookie = "x_id_session"

	listMessage     = "Для следующего запроса /branches/{branch_id}/sim-cards используйте session_id из этого ответа в поле x_id_session cookie"
	missingCookie   = "Отсутствует обязательный cookie x_id_session. Сначала выполните запрос GET /branches и скопируйте session_id из ответа"
	malformedCookie = "Некорректный формат cookie x_id_session. Используйте session_id из ответа /branches"
	invalidBranchID = "Некорректный branch_id: ожидается целое число"
	internalDetail  = "Internal Server Error"
)

// Mount adds GET /branches and GET /branches/:branch_id/sim-cards to router,
// both behind the bearer realm.
func Mount(router *httprouter.Router, deps Deps) {
	router.Handler("GET", "/branches", deps.Realm.Protect(listBranches(deps)))
	router.Handler("GET", "/branches/:branch_id/sim-cards", deps.Realm.Protect(simCards(deps)))
}

func listBranches(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		uid, _ := authapi.UserID(ctx)
		sid, err := deps.Sessions.Begin(ctx, uid)
		if err != nil {
			internalError(w, r, err)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sid,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
		})
		httpio.WriteJSON(w, http.StatusOK, listResponse{
			Branches:  deps.Table.List(),
			SessionID: sid,
			Message:   listMessage,
		})
	}
}

func simCards(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		uid, _ := authapi.UserID(ctx)
		branchID, err := strconv.Atoi(httprouter.ParamsFromContext(ctx).ByName("branch_id"))
		if err != nil {
			httpio.WriteDetail(w, http.StatusUnprocessableEntity, invalidBranchID)
			return
		}
		var sid string
		if c, err := r.Cookie(SessionCookie); err == nil {
			sid = c.Value
		}
		err = deps.Sessions.Check(ctx, uid, sid)
		switch {
		case errors.Is(err, auth.ErrMissingSession):
			httpio.WriteDetail(w, http.StatusBadRequest, missingCookie)
			return
		case errors.Is(err, auth.ErrMalformedSession), errors.Is(err, auth.ErrUnknownSession):
			httpio.WriteDetail(w, http.StatusBadRequest, malformedCookie)
			return
		case err != nil:
			internalError(w, r, err)
			return
		}
		branch, err := deps.Table.Lookup(branchID)
		var notFound branches.BranchNotFound
		if errors.As(err, &notFound) {
			httpio.WriteDetail(w, http.StatusNotFound, notFound.Error())
			return
		} else if err != nil {
			internalError(w, r, err)
			return
		}
		httpio.WriteJSON(w, http.StatusOK, simCardsResponse{
			BranchID:          branch.ID,
			BranchName:        branch.Name,
			AvailableSimCards: deps.SimCards.Available(),
			SessionID:         sid,
		})
	}
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	log := logutil.GetOrDefault(r.Context())
	log.Error().Err(err).Str("path", r.URL.Path).Msg("Unable to process request")
	httpio.WriteDetail(w, http.StatusInternalServerError, internalDetail)
}
