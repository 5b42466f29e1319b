package service

import (
	"fmt"
	"sort"
	"sync"
)

// HomepageChoice is one selectable homepage for a site. Key is what the
// preferences row stores, RouteName is the named route that renders it.
type HomepageChoice struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	RouteName string `json:"-"`
}

// HomepageService keeps the registry of homepage choices. Registration
// happens during wiring; sites pick a key in their preferences and the root
// URL dispatches through the matching route.
type HomepageService struct {
	mu      sync.RWMutex
	choices map[string]HomepageChoice
}

func NewHomepageService() *HomepageService {
	return &HomepageService{choices: make(map[string]HomepageChoice)}
}

func (s *HomepageService) Register(choice HomepageChoice) error {
	if choice.Key == "" || choice.RouteName == "" {
		return fmt.Errorf("homepage choice needs a key and a route name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.choices[choice.Key]; exists {
		return fmt.Errorf("homepage choice %q already registered", choice.Key)
	}
	s.choices[choice.Key] = choice
	return nil
}

// Resolve maps a preferences key to its route name, falling back to the
// "recent" stream for unknown keys so a stale preference never breaks the
// site root.
func (s *HomepageService) Resolve(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if choice, ok := s.choices[key]; ok {
		return choice.RouteName
	}
	if choice, ok := s.choices["recent"]; ok {
		return choice.RouteName
	}
	return ""
}

func (s *HomepageService) Choices() []HomepageChoice {
	s.mu.RLock()
	defer s.mu.RUnlock()

	choices := make([]HomepageChoice, 0, len(s.choices))
	for _, choice := range s.choices {
		choices = append(choices, choice)
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i].Key < choices[j].Key })
	return choices
}
