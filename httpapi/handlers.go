package httpapi

import (
	"net/http"

	authsystem "github.com/MrEthical07/authsystem"
	"github.com/MrEthical07/authsystem/middleware"
)

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.Register(r.Context(), authsystem.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, r, "register", res, err)
		return
	}
	writeEnvelope(w, http.StatusOK, res, nil)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.Login(r.Context(), authsystem.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		h.fail(w, r, "login", res, err)
		return
	}
	writeEnvelope(w, http.StatusOK, res, nil)
}

func (h *handlers) confirmEmail(w http.ResponseWriter, r *http.Request) {
	var req confirmEmailRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.ConfirmEmail(r.Context(), req.Token)
	if err != nil {
		h.fail(w, r, "confirm_email", res, err)
		return
	}
	writeEnvelope(w, http.StatusOK, res, nil)
}

func (h *handlers) resendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.engine.ResendConfirmation(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, "resend_confirmation", res, err)
		return
	}
	writeEnvelope(w, http.StatusOK, res, nil)
}

func (h *handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())

	user, err := h.engine.GetProfile(r.Context(), claims)
	if err != nil {
		h.fail(w, r, "get_profile", authsystem.Result{Message: authsystem.MessageFor(err)}, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !decode(w, r, &req) {
		return
	}
	claims, _ := middleware.ClaimsFromContext(r.Context())

	user, err := h.engine.UpdateProfile(r.Context(), claims, req.Name)
	if err != nil {
		h.fail(w, r, "update_profile", authsystem.Result{Message: authsystem.MessageFor(err)}, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// fail writes the error envelope. Server-side failures are logged with the
// cause; client errors are not.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, op string, res authsystem.Result, err error) {
	status := statusFor(err)
	if res.Message == "" {
		res.Message = authsystem.MessageFor(err)
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "op", op, "status", status, "error", err)
	}
	writeEnvelope(w, status, res, authsystem.WeakPasswordReasons(err))
}
