package entity

import "sync"

// AllRegions é a pseudo-região que consulta o billing sem filtro de região.
const AllRegions = ""

// ProfileSession represents one resolved credential context.
// The account id is set at most once; after that the session is read-only.
type ProfileSession struct {
	ProfileName string   `json:"profile"`
	Regions     []string `json:"regions"`

	mu        sync.RWMutex
	accountID string
	err       error
}

// NewProfileSession cria uma sessão ainda não resolvida.
func NewProfileSession(profile string, regions []string) *ProfileSession {
	if len(regions) == 0 {
		regions = []string{AllRegions}
	}
	return &ProfileSession{ProfileName: profile, Regions: regions}
}

// SetAccountID records the resolved identity. It fails if already set.
func (s *ProfileSession) SetAccountID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountID != "" {
		return ErrAccountAlreadySet
	}
	s.accountID = id
	s.err = nil
	return nil
}

// MarkUnresolved registra a falha da consulta de identidade.
func (s *ProfileSession) MarkUnresolved(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accountID == "" {
		s.err = err
	}
}

// AccountID returns the resolved account id, or "" if unresolved.
func (s *ProfileSession) AccountID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountID
}

// Resolved reports whether the identity lookup succeeded.
func (s *ProfileSession) Resolved() bool {
	return s.AccountID() != ""
}

// Err returns the identity failure, if any.
func (s *ProfileSession) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
