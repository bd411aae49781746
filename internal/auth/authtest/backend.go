package authtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/errmap"
)

// BackendConfig holds configuration for creating a Backend.
type BackendConfig struct {
	Clock     domain.Clock
	AccessTTL time.Duration
	AuthPath  string
	TodosPath string
}

type account struct {
	user     domain.User
	password string
}

type todoRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
	Priority    string `json:"priority"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	owner       int64
}

type authResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	ExpiresIn    int64        `json:"expiresIn"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	AuthProvider string `json:"authProvider"`
	CreatedAt    string `json:"createdAt"`
}

type ctxKey struct{}

// Backend is an httptest server implementing the todo backend's auth and
// todo endpoints. Tests steer it through Invalidate, HoldRefresh,
// FailRefresh and RejectAll, and observe it through the call counters.
type Backend struct {
	server *httptest.Server
	minter *Minter
	clock  domain.Clock

	mu            sync.Mutex
	accounts      map[string]*account // by email
	refreshTokens map[string]int64    // token hash -> user ID
	todos         map[int64]*todoRecord
	nextUserID    int64
	nextTodoID    int64
	generation    int64
	refreshGate   chan struct{}
	refreshStatus int
	logoutStatus  int
	rejectAll     bool
	authHeaders   []string

	refreshCalls  atomic.Int64
	logoutCalls   atomic.Int64
	loginCalls    atomic.Int64
	resourceCalls atomic.Int64
}

// NewBackend starts a Backend and registers its shutdown with t.Cleanup.
func NewBackend(t testing.TB, cfg BackendConfig) *Backend {
	t.Helper()
	clock := cfg.Clock
	if clock == nil {
		clock = domain.RealClock{}
	}
	authPath := cfg.AuthPath
	if authPath == "" {
		authPath = domain.DefaultAuthPath
	}
	todosPath := cfg.TodosPath
	if todosPath == "" {
		todosPath = domain.DefaultTodosPath
	}

	b := &Backend{
		minter:        NewMinter(MinterConfig{AccessTTL: cfg.AccessTTL, Clock: clock}),
		clock:         clock,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]int64),
		todos:         make(map[int64]*todoRecord),
	}

	r := chi.NewRouter()
	r.Route(authPath, func(r chi.Router) {
		r.Post("/register", b.handleRegister)
		r.Post("/login", b.handleLogin)
		r.Post("/refresh", b.handleRefresh)
		r.Post("/logout", b.handleLogout)
		r.With(b.authenticate).Get("/me", b.handleMe)
	})
	r.Route(todosPath, func(r chi.Router) {
		r.Use(b.authenticate)
		r.Get("/", b.handleListTodos)
		r.Post("/", b.handleCreateTodo)
		r.Get("/statistics", b.handleStatistics)
		r.Get("/{id}", b.handleGetTodo)
		r.Put("/{id}", b.handleUpdateTodo)
		r.Patch("/{id}/toggle", b.handleToggleTodo)
		r.Delete("/{id}", b.handleDeleteTodo)
	})

	b.server = httptest.NewServer(r)
	t.Cleanup(func() {
		b.ReleaseRefresh()
		b.server.Close()
	})
	return b
}

// URL returns the server's base URL.
func (b *Backend) URL() string { return b.server.URL }

// Minter returns the minter used to sign the backend's access tokens.
func (b *Backend) Minter() *Minter { return b.minter }

// AddUser registers an account directly and returns its user.
func (b *Backend) AddUser(username, email, password string) domain.User {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addUserLocked(username, email, password).user
}

func (b *Backend) addUserLocked(username, email, password string) *account {
	b.nextUserID++
	acc := &account{
		user:     domain.User{ID: b.nextUserID, Username: username, Email: email},
		password: password,
	}
	b.accounts[strings.ToLower(email)] = acc
	return acc
}

// IssueSession mints an access/refresh pair for an existing account,
// bypassing the login endpoint.
func (b *Backend) IssueSession(email string) (domain.AuthResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[strings.ToLower(email)]
	if !ok {
		return domain.AuthResult{}, domain.ErrNotFound
	}
	resp, err := b.issueLocked(acc.user)
	if err != nil {
		return domain.AuthResult{}, err
	}
	user := acc.user
	return domain.AuthResult{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		User:         &user,
	}, nil
}

// Invalidate revokes every access token issued so far. Refresh tokens stay
// valid.
func (b *Backend) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
}

// HoldRefresh makes refresh requests block until ReleaseRefresh is called.
func (b *Backend) HoldRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshGate == nil {
		b.refreshGate = make(chan struct{})
	}
}

// ReleaseRefresh unblocks refresh requests held by HoldRefresh.
func (b *Backend) ReleaseRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshGate != nil {
		close(b.refreshGate)
		b.refreshGate = nil
	}
}

// FailRefresh makes the refresh endpoint answer with status. Zero restores
// normal behaviour.
func (b *Backend) FailRefresh(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshStatus = status
}

// FailLogout makes the logout endpoint answer with status.
func (b *Backend) FailLogout(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logoutStatus = status
}

// RejectAll makes every authenticated endpoint answer 401 regardless of the
// presented token.
func (b *Backend) RejectAll(reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectAll = reject
}

// RefreshCalls returns the number of refresh requests received.
func (b *Backend) RefreshCalls() int64 { return b.refreshCalls.Load() }

// LogoutCalls returns the number of logout requests received.
func (b *Backend) LogoutCalls() int64 { return b.logoutCalls.Load() }

// LoginCalls returns the number of login and register requests received.
func (b *Backend) LoginCalls() int64 { return b.loginCalls.Load() }

// ResourceCalls returns the number of authenticated requests received.
func (b *Backend) ResourceCalls() int64 { return b.resourceCalls.Load() }

// AuthHeaders returns the Authorization headers of authenticated requests
// in arrival order.
func (b *Backend) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders...)
}

// RefreshTokenValid reports whether token would currently be accepted by
// the refresh endpoint.
func (b *Backend) RefreshTokenValid(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.refreshTokens[HashRefreshToken(token)]
	return ok
}

func (b *Backend) issueLocked(user domain.User) (authResponse, error) {
	minted, err := b.minter.MintAccessToken(user, b.generation)
	if err != nil {
		return authResponse{}, err
	}
	refresh, err := GenerateRefreshToken()
	if err != nil {
		return authResponse{}, err
	}
	b.refreshTokens[HashRefreshToken(refresh)] = user.ID

	return authResponse{
		AccessToken:  minted.Token,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(b.minter.AccessTTL() / time.Second),
		User: userResponse{
			ID:           user.ID,
			Email:        user.Email,
			Username:     user.Username,
			AuthProvider: "LOCAL",
			CreatedAt:    b.clock.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	b.loginCalls.Add(1)
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Email == "" || len(req.Password) < domain.MinPasswordLength {
		writeError(w, fmt.Errorf("%w: validation failed", domain.ErrInvalidInput))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.accounts[strings.ToLower(req.Email)]; exists {
		writeError(w, fmt.Errorf("%w: email is already registered", domain.ErrAlreadyExists))
		return
	}
	acc := b.addUserLocked(req.Username, req.Email, req.Password)
	resp, err := b.issueLocked(acc.user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.loginCalls.Add(1)
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.accounts[strings.ToLower(req.Email)]
	if !ok || acc.password != req.Password {
		writeError(w, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized))
		return
	}
	resp, err := b.issueLocked(acc.user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	b.mu.Lock()
	gate := b.refreshGate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refreshStatus != 0 {
		writeStatus(w, b.refreshStatus, "Refresh rejected")
		return
	}
	hash := HashRefreshToken(req.RefreshToken)
	userID, ok := b.refreshTokens[hash]
	if !ok {
		writeError(w, fmt.Errorf("%w: invalid refresh token", domain.ErrRefreshFailed))
		return
	}
	acc := b.accountByIDLocked(userID)
	if acc == nil {
		writeError(w, fmt.Errorf("%w: invalid refresh token", domain.ErrRefreshFailed))
		return
	}
	// Rotation: the presented token is single use.
	delete(b.refreshTokens, hash)
	resp, err := b.issueLocked(acc.user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.logoutCalls.Add(1)
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.logoutStatus != 0 {
		writeStatus(w, b.logoutStatus, "Logout failed")
		return
	}
	delete(b.refreshTokens, HashRefreshToken(req.RefreshToken))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	writeJSON(w, http.StatusOK, userResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		AuthProvider: "LOCAL",
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.resourceCalls.Add(1)
		header := r.Header.Get("Authorization")

		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, header)
		reject := b.rejectAll
		generation := b.generation
		b.mu.Unlock()

		token, ok := strings.CutPrefix(header, "Bearer ")
		if reject || !ok {
			writeError(w, fmt.Errorf("%w: bearer token missing or rejected", domain.ErrUnauthorized))
			return
		}
		claims, err := b.minter.Verify(token)
		if err != nil || claims.Generation < generation {
			writeError(w, fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized))
			return
		}

		b.mu.Lock()
		acc := b.accountByIDLocked(claims.UserID)
		b.mu.Unlock()
		if acc == nil {
			writeError(w, fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, acc.user)))
	})
}

func (b *Backend) accountByIDLocked(id int64) *account {
	for _, acc := range b.accounts {
		if acc.user.ID == id {
			return acc
		}
	}
	return nil
}

type todoPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Done        *bool  `json:"done"`
	Priority    string `json:"priority"`
}

func (p todoPayload) valid() bool {
	if p.Title == "" || len(p.Title) > domain.MaxTodoTitleLength {
		return false
	}
	if len(p.Description) > domain.MaxTodoDescriptionLength {
		return false
	}
	if p.Priority == "" {
		return true
	}
	_, err := domain.ParsePriority(p.Priority)
	return err == nil
}

func (b *Backend) handleListTodos(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]todoRecord, 0)
	for _, rec := range b.todos {
		if rec.owner == user.ID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	var req todoPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.valid() {
		writeError(w, fmt.Errorf("%w: validation failed", domain.ErrInvalidInput))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextTodoID++
	now := b.clock.Now().UTC().Format(time.RFC3339)
	rec := &todoRecord{
		ID:          b.nextTodoID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priorityOrDefault(req.Priority),
		CreatedAt:   now,
		UpdatedAt:   now,
		owner:       user.ID,
	}
	if req.Done != nil {
		rec.Completed = *req.Done
	}
	b.todos[rec.ID] = rec
	writeJSON(w, http.StatusCreated, rec)
}

func (b *Backend) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	b.withTodo(w, r, func(rec *todoRecord) {
		writeJSON(w, http.StatusOK, rec)
	})
}

func (b *Backend) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.valid() {
		writeError(w, fmt.Errorf("%w: validation failed", domain.ErrInvalidInput))
		return
	}
	b.withTodo(w, r, func(rec *todoRecord) {
		rec.Title = req.Title
		rec.Description = req.Description
		rec.Priority = priorityOrDefault(req.Priority)
		if req.Done != nil {
			rec.Completed = *req.Done
		}
		rec.UpdatedAt = b.clock.Now().UTC().Format(time.RFC3339)
		writeJSON(w, http.StatusOK, rec)
	})
}

func (b *Backend) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	b.withTodo(w, r, func(rec *todoRecord) {
		rec.Completed = !rec.Completed
		rec.UpdatedAt = b.clock.Now().UTC().Format(time.RFC3339)
		writeJSON(w, http.StatusOK, rec)
	})
}

func (b *Backend) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	b.withTodo(w, r, func(rec *todoRecord) {
		delete(b.todos, rec.ID)
		w.WriteHeader(http.StatusNoContent)
	})
}

func (b *Backend) handleStatistics(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	b.mu.Lock()
	defer b.mu.Unlock()

	var stats domain.Statistics
	for _, rec := range b.todos {
		if rec.owner != user.ID {
			continue
		}
		stats.Total++
		if rec.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	writeJSON(w, http.StatusOK, stats)
}

// withTodo resolves the {id} URL parameter to a todo owned by the caller
// and runs fn with the backend lock held.
func (b *Backend) withTodo(w http.ResponseWriter, r *http.Request, fn func(*todoRecord)) {
	user := userFrom(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %q", domain.ErrInvalidID, chi.URLParam(r, "id")))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.todos[id]
	if !ok || rec.owner != user.ID {
		writeError(w, fmt.Errorf("todo %d: %w", id, domain.ErrNotFound))
		return
	}
	fn(rec)
}

func priorityOrDefault(raw string) string {
	p, err := domain.ParsePriority(raw)
	if err != nil {
		return string(domain.PriorityMedium)
	}
	return string(p)
}

func userFrom(ctx context.Context) domain.User {
	user, _ := ctx.Value(ctxKey{}).(domain.User)
	return user
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	he := errmap.ToHTTPError(err)
	writeJSON(w, he.StatusCode, he)
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errmap.HTTPError{StatusCode: status, Code: "INJECTED", Message: message})
}
