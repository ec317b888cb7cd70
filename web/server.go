// Package web renders the catalog pages and maps form posts onto the library core.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"library-catalog/library"
	"library-catalog/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config wires the server to its collaborators.
type Config struct {
	Manager *library.LibraryManager
	Logger  *slog.Logger
	// Metrics is mounted at /metrics when set.
	Metrics      http.Handler
	CookieName   string
	CookieSecure bool
	CookieTTL    time.Duration
}

// Server holds the parsed templates and handler dependencies.
type Server struct {
	mgr     *library.LibraryManager
	logger  *slog.Logger
	metrics http.Handler
	pages   map[string]*template.Template

	cookieName   string
	cookieSecure bool
	cookieTTL    time.Duration
}

var pageNames = []string{"index", "add-book", "edit-book", "login", "register", "about", "contact", "404"}

// New parses the embedded templates and builds a Server.
func New(cfg Config) (*Server, error) {
	if cfg.Manager == nil {
		return nil, errors.New("web: manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "catalog_session"
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Server{
		mgr:          cfg.Manager,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		pages:        pages,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
		cookieTTL:    cfg.CookieTTL,
	}, nil
}

// Router mounts every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(withRequestLog(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Get("/add-book", s.handleAddBookForm)
		r.Post("/add-book", s.handleAddBook)
		r.Get("/delete/{id}", s.handleDelete)
		r.Get("/edit/{id}", s.handleEditForm)
		r.Post("/edit/{id}", s.handleEdit)

		r.Get("/register", s.handleRegisterForm)
		r.Post("/register", s.handleRegister)
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Get("/about", s.staticPage("about", "about", "About"))
		r.Get("/contact", s.staticPage("contact", "contact", "Contact"))
		r.NotFound(s.handleNotFound)
	})
	return r
}

// pageData is what every template receives.
type pageData struct {
	Title       string
	CurrentPage string
	User        string
	Books       []library.Book
	Book        library.Book
	Query       string
	Error       string
}

func (s *Server) page(r *http.Request, title, current string) pageData {
	user, _ := s.mgr.CurrentUser(r.Context(), sessionToken(r.Context()))
	return pageData{Title: title, CurrentPage: current, User: user}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.pages[name].Execute(&buf, data); err != nil {
		logging.LogError(r.Context(), s.logger, "render template", fmt.Errorf("%s: %w", name, err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusFound)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path string, err error) {
	redirect(w, r, path+"?error="+url.QueryEscape(library.FailureCode(err)))
}

// ------------------ Books ------------------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Home", "home")
	data.Query = r.URL.Query().Get("q")
	data.Books = s.mgr.ListBooks(data.Query)
	s.render(w, r, http.StatusOK, "index", data)
}

func (s *Server) handleAddBookForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "add-book", s.page(r, "Add Book", "add"))
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s.mgr.AddBook(r.PostFormValue("title"), r.PostFormValue("author"), r.PostFormValue("genre"), r.PostFormValue("year"))
	redirect(w, r, "/")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mgr.DeleteBook(chi.URLParam(r, "id"))
	redirect(w, r, "/")
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	book, ok := s.mgr.GetBook(chi.URLParam(r, "id"))
	if !ok {
		redirect(w, r, "/")
		return
	}
	data := s.page(r, "Edit Book", "add")
	data.Book = book
	s.render(w, r, http.StatusOK, "edit-book", data)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s.mgr.UpdateBook(chi.URLParam(r, "id"), r.PostFormValue("title"), r.PostFormValue("author"), r.PostFormValue("genre"), r.PostFormValue("year"))
	redirect(w, r, "/")
}

// ------------------ Accounts ------------------

var errorMessages = map[string]string{
	"empty_field":         "Username and password are required.",
	"duplicate_username":  "That username is already taken.",
	"invalid_credentials": "Invalid username or password.",
	"internal":            "Something went wrong, please try again.",
}

func (s *Server) accountPage(r *http.Request, name, title string) pageData {
	data := s.page(r, title, name)
	data.Error = errorMessages[r.URL.Query().Get("error")]
	return data
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", s.accountPage(r, "register", "Register"))
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	token := library.NewSessionToken()
	u, err := s.mgr.Register(ctx, token, r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		target := "/register"
		if u.ID != 0 {
			// Account exists; only the session write failed.
			target = "/login"
		}
		s.logFailure(r, "register failed", err)
		redirectWithError(w, r, target, err)
		return
	}
	s.rotateSession(w, r, token)
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID, "request_id", RequestID(ctx))
	redirect(w, r, "/")
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", s.accountPage(r, "login", "Log In"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	token := library.NewSessionToken()
	u, err := s.mgr.Login(ctx, token, r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		s.logFailure(r, "login failed", err)
		redirectWithError(w, r, "/login", err)
		return
	}
	s.rotateSession(w, r, token)
	s.logger.InfoContext(ctx, "user logged in", "user_id", u.ID, "request_id", RequestID(ctx))
	redirect(w, r, "/")
}

// rotateSession moves the client onto the token a login was bound to and
// discards the session it arrived with.
func (s *Server) rotateSession(w http.ResponseWriter, r *http.Request, token string) {
	s.mgr.Sessions.Logout(r.Context(), sessionToken(r.Context()))
	s.setSessionCookie(w, token)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mgr.Logout(r.Context(), sessionToken(r.Context()))
	s.clearSessionCookie(w)
	redirect(w, r, "/")
}

// logFailure keeps expected credential failures at info and everything else at error.
func (s *Server) logFailure(r *http.Request, msg string, err error) {
	if code := library.FailureCode(err); code != "internal" {
		s.logger.InfoContext(r.Context(), msg, "reason", code, "request_id", RequestID(r.Context()))
		return
	}
	logging.LogError(r.Context(), s.logger, msg, err)
}

// ------------------ Static pages ------------------

func (s *Server) staticPage(name, current, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, name, s.page(r, title, current))
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "404", s.page(r, "404 - Page Not Found", ""))
}
