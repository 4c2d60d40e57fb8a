// Package handler exposes the token registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"whaled/internal/platform/middleware"
	"whaled/internal/registry/models"
	dErrors "whaled/pkg/domain-errors"
	"whaled/pkg/platform/httputil"
	"whaled/pkg/platform/middleware/auth"
	"whaled/pkg/platform/middleware/metadata"
	"whaled/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	Mint(ctx context.Context, owner common.Address) (models.Token, error)
	OwnerOf(ctx context.Context, id models.TokenID) (models.Token, error)
	TotalMinted(ctx context.Context) (uint64, error)
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator auth.TokenValidator
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger, validator auth.TokenValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		validator: validator,
	}
}

// Register mounts registry endpoints on the router. Minting requires a
// bearer token carrying the mint scope; reads are open.
func (h *Handler) Register(r chi.Router) {
	tokenRouter := chi.NewRouter()
	tokenRouter.Use(middleware.Recovery(h.logger))
	tokenRouter.Use(middleware.RequestID)
	tokenRouter.Use(middleware.Logger(h.logger))
	tokenRouter.Use(middleware.Timeout(30 * time.Second))
	tokenRouter.Use(middleware.ContentTypeJSON)
	tokenRouter.Use(metadata.ClientMetadata)

	tokenRouter.Group(func(g chi.Router) {
		g.Use(auth.RequireMinter(h.validator, h.logger))
		g.Post("/tokens/mint", h.handleMint)
	})
	tokenRouter.Get("/tokens/{id}/owner", h.handleOwnerOf)
	tokenRouter.Get("/tokens/stats", h.handleStats)

	r.Mount("/", tokenRouter)
}

// handleMint handles POST /tokens/mint requests.
func (h *Handler) handleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.Mint(ctx, req.ParsedOwner())
	if err != nil {
		if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeInvariantViolation {
			h.logger.ErrorContext(ctx, "mint failed",
				"request_id", requestID,
				"owner", req.Owner,
				"minter", requestcontext.Minter(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromToken(token))
}

// handleOwnerOf handles GET /tokens/{id}/owner requests.
func (h *Handler) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := models.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	token, err := h.service.OwnerOf(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromToken(token))
}

// handleStats handles GET /tokens/stats requests. The next token id equals
// the number of successful mints.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.service.TotalMinted(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load mint stats",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, StatsResponse{
		TotalMinted: total,
		NextTokenID: total,
	})
}
