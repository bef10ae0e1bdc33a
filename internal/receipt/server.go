package receipt

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// Server serves the receipt UI
type Server struct {
	pages     *Pages
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth is the optional username and password guarding the UI
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(pages *Pages, basicAuth BasicAuth) *Server {
	return NewServerWithMux(pages, basicAuth, http.NewServeMux())
}

// NewServerWithMux registers the UI routes on mux
func NewServerWithMux(pages *Pages, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		pages:     pages,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// Enabled reports whether credentials were configured
func (a BasicAuth) Enabled() bool {
	return a.Username != "" || a.Password != ""
}

// Matches compares both fields in constant time
func (a BasicAuth) Matches(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
	return userOK && passOK
}

// requireAuth guards a UI route when credentials are configured
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	if !s.basicAuth.Enabled() {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !s.basicAuth.Matches(username, password) {
			if ok {
				slog.Warn("Rejected credentials", "user", username, "path", r.URL.Path)
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="Receipt Analyzer"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /static/app.css", s.requireAuth(s.handleStaticCSS))
	s.mux.HandleFunc("GET /static/app.js", s.requireAuth(s.handleStaticJS))

	s.mux.HandleFunc("POST /upload", s.requireAuth(s.handleUpload))
	s.mux.HandleFunc("POST /status", s.requireAuth(s.handleStatus))

	s.mux.HandleFunc("GET /index.html", s.requireAuth(s.handleIndex))
	s.mux.HandleFunc("GET /{$}", s.requireAuth(s.handleIndex))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.mux)
}

// ServeHTTP lets the server be mounted or driven directly
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
