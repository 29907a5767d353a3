package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"applybot/internal/http/handlers"
	httpmw "applybot/internal/http/middleware"
	"applybot/internal/observability"
)

type RouterDependencies struct {
	IntakeHandler   *handlers.IntakeHandler
	RecordHandler   *handlers.RecordHandler
	PositionHandler *handlers.PositionHandler
	MetricsHandler  *observability.MetricsHandler
	Metrics         *observability.Collector
	Logger          *logrus.Logger
	InternalAPIKey  string
	RequestTimeout  time.Duration
}

type Router struct {
	deps RouterDependencies
}

const maxBodyBytes = 1 << 20

func NewRouter(deps RouterDependencies) http.Handler {
	return &Router{deps: deps}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := httpmw.Chain(r.baseHandler(),
		httpmw.RequestID,
		httpmw.Logging(r.deps.Logger),
		httpmw.BodyLimit(maxBodyBytes),
		httpmw.Recover(r.deps.Logger),
		httpmw.Metrics(r.deps.Metrics),
		httpmw.Timeout(r.deps.RequestTimeout),
	)
	handler.ServeHTTP(w, req)
}

func (r *Router) baseHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path

		switch {
		case req.Method == http.MethodGet && path == "/health":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		case req.Method == http.MethodGet && path == "/metrics":
			r.deps.MetricsHandler.ServeHTTP(w, req)
			return
		}

		// Everything else is gateway-to-backend traffic.
		if !handlers.RequireInternalAuth(w, req, r.deps.InternalAPIKey) {
			return
		}

		switch {
		case req.Method == http.MethodGet && path == "/positions":
			r.deps.PositionHandler.List(w, req)
			return
		case req.Method == http.MethodPost && path == "/intake/start":
			r.deps.IntakeHandler.Start(w, req)
			return
		case req.Method == http.MethodPost && path == "/intake/confirm":
			r.deps.IntakeHandler.Confirm(w, req)
			return
		case req.Method == http.MethodPost && path == "/intake/cancel":
			r.deps.IntakeHandler.Cancel(w, req)
			return
		case req.Method == http.MethodPost && path == "/intake/answer":
			r.deps.IntakeHandler.Answer(w, req)
			return
		case req.Method == http.MethodGet && path == "/records":
			r.deps.RecordHandler.ListPending(w, req)
			return
		case req.Method == http.MethodPost && strings.HasPrefix(path, "/records/") && strings.HasSuffix(path, "/decision"):
			r.deps.RecordHandler.Decide(w, req)
			return
		case req.Method == http.MethodGet && strings.HasPrefix(path, "/records/"):
			r.deps.RecordHandler.Get(w, req)
			return
		}

		http.NotFound(w, req)
	})
}
