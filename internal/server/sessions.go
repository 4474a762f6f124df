package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/plate-fill-mcp/internal/config"
	"github.com/ironsheep/plate-fill-mcp/internal/detection"
)

// session is one live stream: a fixed scale context and the boundary
// smoothing state carried between its frames.
type session struct {
	mu      sync.Mutex
	id      string
	scale   config.ScaleContext
	state   detection.SmoothingState
	frames  int
	created time.Time
}

func (s *Server) startSession(scale config.ScaleContext) *session {
	sess := &session{
		id:      uuid.NewString(),
		scale:   scale,
		created: time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

func (s *Server) session(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session: %s", id)
	}
	return sess, nil
}

func (s *Server) endSession(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session: %s", id)
	}
	delete(s.sessions, id)
	return sess, nil
}

// sessionCount returns the number of open sessions.
func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
