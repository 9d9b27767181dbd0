package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	models "PulseFeed/internal/domain/models"
	drepo "PulseFeed/internal/domain/repository"
	"PulseFeed/internal/service/assistant"
	"PulseFeed/internal/service/ratelimit"
	"PulseFeed/internal/usecase"
	xhttp "PulseFeed/pkg/http"
	xlogger "PulseFeed/pkg/logger"
	xutil "PulseFeed/pkg/util"

	"github.com/labstack/echo/v4"
)

// FeedHandler exposes the correlation pipeline and its collaborators over
// Echo. The feed itself stays the only mutator of pipeline state; handlers
// just translate HTTP into the two pipeline operations and snapshots.
type FeedHandler struct {
	l    *xlogger.Logger
	feed *usecase.Feed
	auth drepo.Authorization
	bio  drepo.BiometricResolver
	chat *assistant.Client
	rl   *ratelimit.Limiter
}

func NewFeedHandler(l *xlogger.Logger, feed *usecase.Feed, auth drepo.Authorization, bio drepo.BiometricResolver, chat *assistant.Client) *FeedHandler {
	return &FeedHandler{l: l, feed: feed, auth: auth, bio: bio, chat: chat, rl: ratelimit.New()}
}

func (h *FeedHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/feed/fetch", h.Fetch)
	g.POST("/feed/more", h.More)
	g.GET("/feed", h.Snapshot)
	g.POST("/biometrics/grant", h.Grant)
	g.GET("/biometrics/average", h.Average)
	g.POST("/chat", h.Chat)
}

// Fetch starts a fresh session: clears the sequence and loads the newest page.
func (h *FeedHandler) Fetch(c echo.Context) error {
	req := &models.FetchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.feed.InitialFetch(c.Request().Context(), req.Address); err != nil {
		return h.feedErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, h.feed.Snapshot())
}

// More loads the next older page behind the cursor. Exhaustion is not an
// error: the snapshot simply comes back unchanged.
func (h *FeedHandler) More(c echo.Context) error {
	err := h.feed.LoadMore(c.Request().Context())
	if err != nil && !errors.Is(err, usecase.ErrNoCursor) {
		return h.feedErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, h.feed.Snapshot())
}

// Snapshot returns the current records, cursor, and loading flags.
// ?limit=N truncates the returned records; the pipeline state is untouched.
func (h *FeedHandler) Snapshot(c echo.Context) error {
	snap := h.feed.Snapshot()
	if limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 0); limit > 0 && limit < len(snap.Records) {
		snap.Records = snap.Records[:limit]
	}
	return xhttp.SuccessResponse(c, snap)
}

// Grant records the biometric read consent for this session.
func (h *FeedHandler) Grant(c echo.Context) error {
	h.auth.Grant()
	return xhttp.NoContentResponse(c)
}

// Average is an operational probe into the window resolver: ?at=<rfc3339|unix>.
func (h *FeedHandler) Average(c echo.Context) error {
	at := xutil.ParseTimeDefault(c.QueryParam("at"), time.Now())
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"at":     at,
		"metric": h.bio.AverageAround(c.Request().Context(), at),
	})
}

// Chat forwards one message to the completion endpoint.
func (h *FeedHandler) Chat(c echo.Context) error {
	req := &models.ChatRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":chat", 5, 0.5) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many chat requests", http.StatusTooManyRequests))
	}

	reply, err := h.chat.Complete(c.Request().Context(), req.Message, req.MaxTokens)
	if err != nil {
		h.l.Error("chat completion error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_UPSTREAM", "", "completion failed", http.StatusBadGateway).WithError(err))
	}
	return xhttp.SuccessResponse(c, models.ChatResponse{Reply: reply})
}

func (h *FeedHandler) feedErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrFetchInFlight):
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_FETCH_IN_FLIGHT", "", "a fetch is already running", http.StatusConflict))
	case errors.Is(err, usecase.ErrNoAddress):
		return xhttp.BadRequestResponse(c, "address required")
	}

	var fe *models.FetchError
	if errors.As(err, &fe) {
		h.l.Error("page fetch failed",
			xlogger.String("kind", string(fe.Kind)),
			xlogger.Error(err),
		)
		code := "ERR_LEDGER_" + strings.ToUpper(string(fe.Kind))
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(code, "", fe.Error(), http.StatusBadGateway).WithError(err))
	}

	h.l.Error("feed operation error", xlogger.Error(err))
	return xhttp.AppErrorResponse(c, err)
}
