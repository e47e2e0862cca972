// Package auth holds the static admin allow-list.
package auth

import "sort"

type Service struct {
	allowed map[int64]struct{}
}

// New builds the allow-list. An empty list leaves the bot unrestricted.
func New(ids []int64) *Service {
	s := &Service{allowed: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.allowed[id] = struct{}{}
	}
	return s
}

// Restricted reports whether an allow-list is in force.
func (s *Service) Restricted() bool {
	return s != nil && len(s.allowed) > 0
}

// IsAllowed reports whether userID may talk to the model.
func (s *Service) IsAllowed(userID int64) bool {
	if !s.Restricted() {
		return true
	}
	_, ok := s.allowed[userID]
	return ok
}

// IsAdmin reports whether userID is explicitly listed. Unlike IsAllowed it is
// false for everyone when no list is configured.
func (s *Service) IsAdmin(userID int64) bool {
	if s == nil {
		return false
	}
	_, ok := s.allowed[userID]
	return ok
}

func (s *Service) List() []int64 {
	if s == nil {
		return nil
	}
	out := make([]int64, 0, len(s.allowed))
	for id := range s.allowed {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
