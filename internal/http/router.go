package http

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"stagelink/internal/http/handlers"
	httpmw "stagelink/internal/http/middleware"
	"stagelink/internal/observability"
)

type RouterDependencies struct {
	CompanyHandler      *handlers.CompanyHandler
	ListingHandler      *handlers.ListingHandler
	TimesheetHandler    *handlers.TimesheetHandler
	EmploymentHandler   *handlers.EmploymentHandler
	ShareHandler        *handlers.ShareHandler
	NotificationHandler *handlers.NotificationHandler
	AuthMiddleware      *httpmw.AuthMiddleware
	Metrics             *observability.Metrics
	Logger              *zap.SugaredLogger
	RequestTimeout      time.Duration
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
			r.deps.Metrics.Handler().ServeHTTP(w, req)
			return
		case req.Method == http.MethodGet && strings.HasPrefix(path, "/shared/"):
			r.deps.ShareHandler.Resolve(w, req)
			return
		}

		// Everything below resolves the bearer token; read endpoints stay
		// reachable anonymously and the services decide what is visible.
		protected := r.deps.AuthMiddleware.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			r.handleAPI(w, req)
		}))
		protected.ServeHTTP(w, req)
	})
}

func (r *Router) handleAPI(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path

	switch {
	case req.Method == http.MethodPost && path == "/companies":
		requireAuth(r.deps.CompanyHandler.Register).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/companies":
		r.deps.CompanyHandler.List(w, req)
		return
	case req.Method == http.MethodGet && path == "/companies/mine":
		requireAuth(r.deps.CompanyHandler.Mine).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && isActionPath(path, "/companies/"):
		requireAuth(r.deps.CompanyHandler.Action).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/companies/"):
		r.deps.CompanyHandler.Get(w, req)
		return

	case req.Method == http.MethodPost && path == "/jobs":
		requireAuth(r.deps.ListingHandler.Create).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/jobs":
		r.deps.ListingHandler.List(w, req)
		return
	case req.Method == http.MethodPost && isActionPath(path, "/jobs/"):
		requireAuth(r.deps.ListingHandler.Action).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/jobs/"):
		r.deps.ListingHandler.Get(w, req)
		return

	case req.Method == http.MethodPost && path == "/timesheets":
		requireAuth(r.deps.TimesheetHandler.Create).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/timesheets":
		requireAuth(r.deps.TimesheetHandler.List).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && isActionPath(path, "/timesheets/"):
		requireAuth(r.deps.TimesheetHandler.Action).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/timesheets/"):
		requireAuth(r.deps.TimesheetHandler.Get).ServeHTTP(w, req)
		return

	case req.Method == http.MethodPost && path == "/employments":
		requireAuth(r.deps.EmploymentHandler.Create).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/employments":
		requireAuth(r.deps.EmploymentHandler.List).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && isActionPath(path, "/employments/"):
		requireAuth(r.deps.EmploymentHandler.Action).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/employments/"):
		requireAuth(r.deps.EmploymentHandler.Get).ServeHTTP(w, req)
		return

	case req.Method == http.MethodPost && path == "/shares":
		requireAuth(r.deps.ShareHandler.Create).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && path == "/shares":
		requireAuth(r.deps.ShareHandler.ListMine).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/shares/") && strings.HasSuffix(path, "/disable"):
		requireAuth(r.deps.ShareHandler.Disable).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && strings.HasPrefix(path, "/shares/"):
		requireAuth(r.deps.ShareHandler.Get).ServeHTTP(w, req)
		return

	case req.Method == http.MethodGet && path == "/notifications":
		requireAuth(r.deps.NotificationHandler.List).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && strings.HasPrefix(path, "/notifications/") && strings.HasSuffix(path, "/read"):
		requireAuth(r.deps.NotificationHandler.MarkRead).ServeHTTP(w, req)
		return
	}

	http.NotFound(w, req)
}

// isActionPath matches /{kind}/{id}/actions/{action}.
func isActionPath(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	return len(parts) == 3 && parts[1] == "actions" && parts[2] != ""
}

func requireAuth(h http.HandlerFunc) http.Handler {
	return httpmw.RequireAuth(h)
}
