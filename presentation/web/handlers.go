package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"feedback_automation/application/automation"
	"feedback_automation/domain/entities"
	"feedback_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	invalidLoginMessage = "Invalid username or password"
	missingCredsMessage = "Error: Username and Password are required."
	maxRunRequestBytes  = 64 << 10
)

type runRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "login.html", loginPage{Flash: popFlash(w, r)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(clientKey(r)) {
		metricLogins.WithLabelValues("rate_limited").Inc()
		http.Error(w, "Too many login attempts. Try again later.", http.StatusTooManyRequests)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	user, err := s.auth.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, interfaces.ErrInvalidCredentials) {
			s.logger.WithError(err).Error("authentication failed")
		}
		metricLogins.WithLabelValues("failure").Inc()
		s.render(w, http.StatusOK, "login.html", loginPage{Flash: invalidLoginMessage})
		return
	}

	token, expires, err := s.sessions.Issue(user)
	if err != nil {
		s.logger.WithError(err).Error("failed to issue session")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	metricLogins.WithLabelValues("success").Inc()
	s.sessions.SetCookie(w, token, expires)
	s.logger.WithField("username", user.Username).Info("user logged in")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := claimsFrom(r.Context()); ok {
		s.sessions.Revoke(claims)
		s.logger.WithField("username", claims.Username).Info("user logged out")
	}
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var page dashboardPage
	if claims, ok := claimsFrom(r.Context()); ok {
		page.Username = claims.Username
	}
	s.render(w, http.StatusOK, "index.html", page)
}

// handleRunAutomation streams the runner's messages as plain text, flushing
// after each one. The request context bounds the run.
func (s *Server) handleRunAutomation(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	body := http.MaxBytesReader(w, r.Body, maxRunRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, missingCredsMessage, http.StatusBadRequest)
		return
	}
	creds := entities.Credentials{Username: req.Username, Password: req.Password}
	if err := creds.Validate(); err != nil {
		http.Error(w, missingCredsMessage, http.StatusBadRequest)
		return
	}

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flush()

	metricActiveRuns.Inc()
	defer metricActiveRuns.Dec()

	log := s.logger.WithField("portal_user", creds.Username)
	if claims, ok := claimsFrom(r.Context()); ok {
		log = log.WithField("username", claims.Username)
	}

	writeFailed := false
	write := func(text string) {
		if writeFailed {
			return
		}
		if _, err := io.WriteString(w, text); err != nil {
			writeFailed = true
			log.WithError(err).Warn("client stopped reading the automation stream")
			return
		}
		flush()
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(logrus.Fields{"panic": rec}).Error("automation stream panicked")
			write(entities.Message{Kind: entities.MessageCritical, Text: automation.CriticalText(fmt.Errorf("%v", rec))}.String())
		}
	}()

	for msg := range s.runner.Run(r.Context(), creds) {
		write(msg.String())
	}
}

// clientKey identifies the caller for rate limiting. RealIP has already
// replaced RemoteAddr when a proxy header was present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// loginLimiter is a token bucket per client address.
type loginLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const limiterIdleTTL = 10 * time.Minute

func newLoginLimiter(perSecond float64, burst int) *loginLimiter {
	return &loginLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		clients: make(map[string]*limiterEntry),
	}
}

func (l *loginLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, e := range l.clients {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.clients, k)
		}
	}

	e, ok := l.clients[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
