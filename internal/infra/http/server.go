package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes обработчики, которые собирает main. Пустые не регистрируются.
type Routes struct {
	Pay     http.Handler
	Webhook http.Handler
	// TelegramPath путь вебхука бота, например /bot<token>.
	TelegramPath string
	Telegram     http.Handler
}

type Server struct {
	srv *http.Server
}

func New(addr string, exposeMetrics bool, routes Routes) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(exposeMetrics, routes),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func NewRouter(exposeMetrics bool, routes Routes) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", plainText("✅ Server is running"))
	r.Get("/health", plainText("OK"))
	r.Get("/success", plainText("✅ Оплата прошла. Ссылка-приглашение придёт в Telegram."))
	r.Get("/cancel", plainText("Оплата отменена."))

	if exposeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	if routes.Pay != nil {
		r.Method(http.MethodGet, "/pay", routes.Pay)
	}
	if routes.Webhook != nil {
		r.Method(http.MethodPost, "/stripe/webhook", routes.Webhook)
	}
	if routes.Telegram != nil && routes.TelegramPath != "" {
		r.Method(http.MethodPost, routes.TelegramPath, routes.Telegram)
	}
	return r
}

func plainText(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
