package http

import (
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/webflow/pkg/scope"
)

// SessionCookie names the cookie identifying a browser session.
const SessionCookie = "WEBFLOW_SESSION"

// SessionManager keeps one session scope per browser in memory.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*scope.SharedMap
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*scope.SharedMap)}
}

// Session returns the session map of the request, issuing a cookie for new browsers.
func (sm *SessionManager) Session(w http.ResponseWriter, r *http.Request) *scope.SharedMap {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if c, err := r.Cookie(SessionCookie); err == nil {
		if m, ok := sm.sessions[c.Value]; ok {
			return m
		}
	}
	id := uuid.NewString()
	m := scope.NewSharedMap(nil)
	sm.sessions[id] = m
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: id, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	return m
}

// Len returns the number of live sessions.
func (sm *SessionManager) Len() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}
