// Package httpapi exposes the subscription commands over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tesso57/feedrelay/internal/domain/subscription"
)

// Commands answers subscription commands in plain text.
type Commands interface {
	Subscribe(ctx context.Context, channel subscription.ChannelRef, url string) string
	Unsubscribe(ctx context.Context, channel subscription.ChannelRef, url string) (string, error)
	List(ctx context.Context, channel subscription.ChannelRef) (string, error)
}

// NewRouter builds the HTTP routes.
func NewRouter(cmds Commands, log *zap.Logger) *chi.Mux {
	if log == nil {
		log = zap.NewNop()
	}
	h := handler{cmds: cmds, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/channels/{platform}/{id}/subscriptions", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.subscribe)
		r.Delete("/", h.unsubscribe)
	})
	return r
}

type handler struct {
	cmds Commands
	log  *zap.Logger
}

// channelRef reads the channel from the path. chi matches on the escaped
// path when one is set, so params are unescaped only in that case.
func channelRef(r *http.Request) (subscription.ChannelRef, error) {
	platform, id := chi.URLParam(r, "platform"), chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		var err error
		if platform, err = url.PathUnescape(platform); err != nil {
			return "", err
		}
		if id, err = url.PathUnescape(id); err != nil {
			return "", err
		}
	}
	return subscription.NewChannelRef(platform, id), nil
}

func (h handler) list(w http.ResponseWriter, r *http.Request) {
	channel, err := channelRef(r)
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid channel")
		return
	}
	reply, err := h.cmds.List(r.Context(), channel)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeText(w, http.StatusOK, reply)
}

func (h handler) subscribe(w http.ResponseWriter, r *http.Request) {
	channel, err := channelRef(r)
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid channel")
		return
	}
	writeText(w, http.StatusOK, h.cmds.Subscribe(r.Context(), channel, r.FormValue("url")))
}

func (h handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	channel, err := channelRef(r)
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid channel")
		return
	}
	reply, err := h.cmds.Unsubscribe(r.Context(), channel, r.FormValue("url"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeText(w, http.StatusOK, reply)
}

func (h handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeText(w, http.StatusInternalServerError, "internal error")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
