package ws

import "sort"

// Subscription is one connection's filter token set. A fresh subscription
// covers everything ("all"); explicit sport and event tokens narrow it.
// The set is never empty: removing the last explicit token resets it to all.
//
// Not safe for concurrent use; callers hold the owning Client's lock.
type Subscription struct {
	all    bool
	sports map[string]bool
	events map[string]bool
}

func newSubscription() *Subscription {
	return &Subscription{
		all:    true,
		sports: make(map[string]bool),
		events: make(map[string]bool),
	}
}

// Subscribe applies a subscribe frame. On an all-only subscription the
// supplied sports replace the catch-all; on an explicit set they are unioned
// in. The catch-all never carries explicit tokens, so both cases reduce to
// dropping the all flag and adding the supplied tokens.
func (s *Subscription) Subscribe(sports, events []string) {
	s.all = false
	for _, sport := range sports {
		s.sports[sport] = true
	}
	for _, id := range events {
		s.events[id] = true
	}
	if s.empty() {
		s.all = true
	}
}

// Unsubscribe removes matching sport and event tokens. Emptying the set
// resets it to all.
func (s *Subscription) Unsubscribe(sports, events []string) {
	for _, sport := range sports {
		delete(s.sports, sport)
	}
	for _, id := range events {
		delete(s.events, id)
	}
	if s.empty() {
		s.all = true
	}
}

// Matches reports whether an event with the given sport slug and id passes
// this filter.
func (s *Subscription) Matches(slug, eventID string) bool {
	if s.all {
		return true
	}
	return s.sports[slug] || s.events[eventID]
}

// All reports whether the subscription is the catch-all.
func (s *Subscription) All() bool {
	return s.all
}

// Tokens renders the set as sorted token strings for acks:
// "all", "sport:<slug>", "event:<id>".
func (s *Subscription) Tokens() []string {
	if s.all {
		return []string{"all"}
	}

	tokens := make([]string, 0, len(s.sports)+len(s.events))
	for sport := range s.sports {
		tokens = append(tokens, "sport:"+sport)
	}
	for id := range s.events {
		tokens = append(tokens, "event:"+id)
	}
	sort.Strings(tokens)
	return tokens
}

func (s *Subscription) empty() bool {
	return !s.all && len(s.sports) == 0 && len(s.events) == 0
}
