package controllers

import (
	"net/http"
	"time"

	"github.com/dishpatch/merchant-backend/api/responses"
	"github.com/dishpatch/merchant-backend/api/validators"
	"github.com/dishpatch/merchant-backend/internal/bankverification"
	"github.com/dishpatch/merchant-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/logger"
)

type bankVerifyRequest struct {
	Method        string `json:"method" validate:"required"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSC          string `json:"ifsc,omitempty"`
	VPA           string `json:"vpa,omitempty"`
}

// BankVerify runs a penny-drop or VPA check against the provided destination.
func BankVerify(svc bankverification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		sid, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bankVerifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method := enums.VerificationMethod(payload.Method)
		if !method.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown verification method"))
			return
		}

		attempt, err := svc.Verify(r.Context(), bankverification.VerifyInput{
			StoreID:       sid,
			Method:        method,
			AccountNumber: payload.AccountNumber,
			IFSC:          payload.IFSC,
			VPA:           payload.VPA,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, attempt)
	}
}

// BankVerifyRemaining reports how many verification attempts are left today.
func BankVerifyRemaining(svc bankverification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		sid, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		remaining, err := svc.RemainingAttempts(r.Context(), sid, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"remaining": remaining})
	}
}

// BankVerifyHistory lists recent verification attempts for the active store.
func BankVerifyHistory(svc bankverification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		sid, err := activeStoreID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), sid, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, history)
	}
}
