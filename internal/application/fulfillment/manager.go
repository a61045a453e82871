package fulfillment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/recepcion-despacho/internal/domain"
	"github.com/jhoicas/recepcion-despacho/internal/domain/entity"
	"github.com/jhoicas/recepcion-despacho/pkg/logger"
)

// SessionManager mantiene las sesiones abiertas de los motores de entradas y salidas.
type SessionManager struct {
	mu       sync.RWMutex
	engines  map[entity.Flow]*Engine
	sessions map[string]*Session
	log      *logger.Logger
}

// NewSessionManager registra los motores disponibles (uno por flujo).
func NewSessionManager(log *logger.Logger, engines ...*Engine) *SessionManager {
	if log == nil {
		log = logger.Nop()
	}
	m := &SessionManager{
		engines:  make(map[entity.Flow]*Engine, len(engines)),
		sessions: make(map[string]*Session),
		log:      log,
	}
	for _, e := range engines {
		m.engines[e.Flow()] = e
	}
	return m
}

// Engine devuelve el motor del flujo.
func (m *SessionManager) Engine(flow entity.Flow) (*Engine, error) {
	e, ok := m.engines[flow]
	if !ok {
		return nil, fmt.Errorf("%w: flujo %s", domain.ErrNotFound, flow)
	}
	return e, nil
}

// Create abre una sesión nueva en el flujo indicado.
func (m *SessionManager) Create(flow entity.Flow, mode Mode) (*Session, error) {
	e, err := m.Engine(flow)
	if err != nil {
		return nil, err
	}
	s := e.NewSession(mode)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s, nil
}

// Get devuelve la sesión si existe y pertenece al flujo.
func (m *SessionManager) Get(flow entity.Flow, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.Flow() != flow {
		return nil, fmt.Errorf("%w: sesión %s", domain.ErrNotFound, id)
	}
	return s, nil
}

// Abandon descarta la sesión. Nada confirmado se revierte.
func (m *SessionManager) Abandon(flow entity.Flow, id string) error {
	if _, err := m.Get(flow, id); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len cantidad de sesiones abiertas.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune descarta las sesiones sin uso desde antes de now-maxIdle. Las que están confirmando se conservan.
// La inactividad se revisa sin el candado del registro: una sesión ocupada en el backend no frena a las demás.
func (m *SessionManager) Prune(now time.Time, maxIdle time.Duration) int {
	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	var idle []*Session
	for _, s := range candidates {
		lastUsed, committing := s.idleSince()
		if committing || now.Sub(lastUsed) < maxIdle {
			continue
		}
		idle = append(idle, s)
	}
	if len(idle) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pruned := 0
	for _, s := range idle {
		if m.sessions[s.ID()] == s {
			delete(m.sessions, s.ID())
			pruned++
		}
	}
	return pruned
}

// RunSweeper poda sesiones inactivas cada interval hasta que ctx se cancele.
func (m *SessionManager) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Prune(now, maxIdle); n > 0 {
				m.log.Info().Int("pruned", n).Msg("sesiones inactivas descartadas")
			}
		}
	}
}
