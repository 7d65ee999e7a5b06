package httpapi

import (
	"net/http"
	"strings"
)

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgMalformedBody, nil)
		return
	}

	res, err := a.gateway.Register(r.Context(), req.input())
	if err != nil {
		a.respondServiceError(w, r, "register", err)
		return
	}

	respondSuccess(w, http.StatusCreated, "account created", registerResponse{
		AccountID:   res.AccountID,
		FirstName:   res.FirstName,
		LastName:    res.LastName,
		Email:       res.Email,
		PhoneNumber: res.PhoneNumber,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgMalformedBody, nil)
		return
	}
	if err := req.required(); err != nil {
		a.respondServiceError(w, r, "login", err)
		return
	}

	res, err := a.gateway.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.respondServiceError(w, r, "login", err)
		return
	}

	respondSuccess(w, http.StatusOK, "login successful", loginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		AccountID:    res.AccountID,
		FirstName:    res.FirstName,
		LastName:     res.LastName,
		Email:        res.Email,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgMalformedBody, nil)
		return
	}

	pair, err := a.gateway.Refresh(r.Context(), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		a.respondServiceError(w, r, "refresh", err)
		return
	}

	respondSuccess(w, http.StatusOK, "token refreshed", tokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgMalformedBody, nil)
		return
	}

	info, err := a.gateway.Verify(r.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		a.respondServiceError(w, r, "verify", err)
		return
	}

	respondSuccess(w, http.StatusOK, "token is valid", tokenInfoResponse{
		AccountID: info.AccountID,
		TokenType: info.TokenType,
		ExpiresAt: info.ExpiresAt.UTC(),
	})
}

func (a *API) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgMalformedBody, nil)
		return
	}

	if err := a.gateway.Logout(r.Context(), strings.TrimSpace(req.RefreshToken)); err != nil {
		a.respondServiceError(w, r, "revoke", err)
		return
	}

	respondSuccess(w, http.StatusOK, "token revoked", nil)
}

func (a *API) handleGetMe(w http.ResponseWriter, r *http.Request) {
	account, err := a.gateway.Account(r.Context(), accountIDFrom(r.Context()))
	if err != nil {
		a.respondServiceError(w, r, "get account", err)
		return
	}
	respondSuccess(w, http.StatusOK, "account", newAccountResponse(account))
}

func (a *API) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req accountUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgMalformedBody, nil)
		return
	}

	account, err := a.gateway.UpdateMe(r.Context(), accountIDFrom(r.Context()), req.input())
	if err != nil {
		a.respondServiceError(w, r, "update account", err)
		return
	}
	respondSuccess(w, http.StatusOK, "account updated", newAccountResponse(account))
}

func (a *API) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := a.gateway.DeleteMe(r.Context(), accountIDFrom(r.Context())); err != nil {
		a.respondServiceError(w, r, "delete account", err)
		return
	}
	respondSuccess(w, http.StatusOK, "account deleted", nil)
}

func (a *API) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	v, err := a.gateway.Profile(r.Context(), accountIDFrom(r.Context()))
	if err != nil {
		a.respondServiceError(w, r, "get profile", err)
		return
	}
	respondSuccess(w, http.StatusOK, "profile", newProfileResponse(v))
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, msgMalformedBody, nil)
		return
	}

	in, err := req.input()
	if err != nil {
		a.respondServiceError(w, r, "update profile", err)
		return
	}

	v, err := a.gateway.UpdateProfile(r.Context(), accountIDFrom(r.Context()), in)
	if err != nil {
		a.respondServiceError(w, r, "update profile", err)
		return
	}
	respondSuccess(w, http.StatusOK, "profile updated", newProfileResponse(v))
}

func (a *API) handleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	up, err := a.gateway.AvatarUploadURL(r.Context(), accountIDFrom(r.Context()))
	if err != nil {
		a.respondServiceError(w, r, "avatar upload", err)
		return
	}
	respondSuccess(w, http.StatusOK, "upload the picture with PUT", avatarUploadResponse{
		Key:       up.Key,
		UploadURL: up.UploadURL,
		ExpiresIn: int(up.ExpiresIn.Seconds()),
	})
}
