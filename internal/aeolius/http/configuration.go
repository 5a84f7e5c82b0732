package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/domain"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/service"
	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/httpx"
	"github.com/aussiebroadwan/aeolius/pkg/slogx"
)

const maxConfigurationBody = 1 << 10

var errInvalidService = aeoliussdk.NewAPIError(
	http.StatusUnprocessableEntity,
	aeoliussdk.ErrorCodeInvalidRequest,
	"service must be an http(s) URL",
)

type ConfigurationHandler struct {
	Service *service.ConfigurationService
}

// HandleGet returns the caller's configuration.
//
//	@Summary		Get configuration
//	@Description	Returns the configuration of the account the access token belongs to.
//	@Tags			Configuration
//	@Security		BearerAuth
//	@Produce		json
//	@Param			service	query		string						true	"PDS base URL, e.g. https://bsky.social"
//	@Success		200		{object}	aeoliussdk.Configuration	"enabled, postTTL"
//	@Failure		401		{object}	aeoliussdk.APIError			"Missing or rejected access token"
//	@Failure		403		{object}	aeoliussdk.APIError			"Service not allowed"
//	@Failure		404		{object}	aeoliussdk.APIError			"No configuration stored"
//	@Failure		422		{object}	aeoliussdk.APIError			"Missing or invalid service"
//	@Failure		502		{object}	aeoliussdk.APIError			"PDS unreachable"
//	@Router			/configuration [get].
func (h *ConfigurationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, _ := httpx.BearerFromContext(ctx)

	svc := r.URL.Query().Get("service")
	if svc == "" {
		aeoliussdk.ErrMissingService.WriteError(w)
		return
	}

	c, err := h.Service.Get(ctx, svc, token)
	if err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAPIConfiguration(c))
}

// HandlePut replaces the caller's configuration.
//
//	@Summary		Replace configuration
//	@Description	Stores the configuration of the account the refresh token belongs to.
//	@Description	The refresh token is rotated and kept, encrypted, so the worker can act on the account.
//	@Tags			Configuration
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			service	query		string						true	"PDS base URL"
//	@Param			body	body		aeoliussdk.Configuration	true	"New configuration; postTTL in months, at least 1"
//	@Success		200		{object}	aeoliussdk.Configuration	"Stored configuration"
//	@Failure		401		{object}	aeoliussdk.APIError			"Missing or rejected refresh token"
//	@Failure		403		{object}	aeoliussdk.APIError			"Service not allowed"
//	@Failure		422		{object}	aeoliussdk.APIError			"Invalid body or service"
//	@Failure		502		{object}	aeoliussdk.APIError			"PDS unreachable"
//	@Router			/configuration [put].
func (h *ConfigurationHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, _ := httpx.BearerFromContext(ctx)

	svc := r.URL.Query().Get("service")
	if svc == "" {
		aeoliussdk.ErrMissingService.WriteError(w)
		return
	}

	var body aeoliussdk.Configuration
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConfigurationBody)).Decode(&body); err != nil {
		aeoliussdk.ErrInvalidConfiguration.WriteError(w)
		return
	}

	c, err := h.Service.Put(ctx, svc, token, body.Enabled, body.PostTTL)
	if err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAPIConfiguration(c))
}

// HandleDelete removes the caller's configuration.
//
//	@Summary		Delete configuration
//	@Description	Removes the configuration and the stored refresh token of the account the access token belongs to.
//	@Tags			Configuration
//	@Security		BearerAuth
//	@Param			service	query	string	true	"PDS base URL"
//	@Success		204		"Deleted"
//	@Failure		401		{object}	aeoliussdk.APIError	"Missing or rejected access token"
//	@Failure		403		{object}	aeoliussdk.APIError	"Service not allowed"
//	@Failure		422		{object}	aeoliussdk.APIError	"Missing or invalid service"
//	@Failure		502		{object}	aeoliussdk.APIError	"PDS unreachable"
//	@Router			/configuration [delete].
func (h *ConfigurationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, _ := httpx.BearerFromContext(ctx)

	svc := r.URL.Query().Get("service")
	if svc == "" {
		aeoliussdk.ErrMissingService.WriteError(w)
		return
	}

	if err := h.Service.Delete(ctx, svc, token); err != nil {
		writeServiceError(w, slogx.FromContext(ctx), err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

func toAPIConfiguration(c domain.Configuration) aeoliussdk.Configuration {
	return aeoliussdk.Configuration{Enabled: c.Enabled, PostTTL: c.PostTTL}
}

func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrConfigurationNotFound):
		aeoliussdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrInvalidConfiguration):
		aeoliussdk.ErrInvalidConfiguration.WriteError(w)
	case errors.Is(err, service.ErrInvalidService):
		errInvalidService.WriteError(w)
	case errors.Is(err, service.ErrServiceNotAllowed):
		aeoliussdk.ErrServiceNotAllowed.WriteError(w)
	case errors.Is(err, service.ErrUnauthenticated):
		log.Debug("identity provider rejected token", "error", err)
		aeoliussdk.ErrUnauthorized.WriteError(w)
	case errors.Is(err, service.ErrUpstream):
		log.Warn("identity provider request failed", "error", err)
		aeoliussdk.ErrUpstream.WriteError(w)
	default:
		log.Error("configuration request failed", "error", err)
		aeoliussdk.ErrServerError.WriteError(w)
	}
}
