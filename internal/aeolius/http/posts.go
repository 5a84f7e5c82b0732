package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/httpx"
	"github.com/aussiebroadwan/aeolius/pkg/slogx"
)

type PostsHandler struct {
	Sweeper Sweeper
}

// ServeHTTP runs a sweep and reports its statistics. The sweep keeps going
// if the caller disconnects so batches are never abandoned half way.
func (h *PostsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	stats, err := h.Sweeper.Sweep(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("sweep failed", "error", err)
		aeoliussdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, stats)
}
