package chat

import "sync"

// SubscriptionIndex maps a conversation id to the set of principals currently
// present in it for live fan-out. Entries are removed as soon as they empty
// out, so the index never outgrows the set of active conversations.
type SubscriptionIndex struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{}
}

func NewSubscriptionIndex() *SubscriptionIndex {
	return &SubscriptionIndex{members: make(map[string]map[string]struct{})}
}

func (s *SubscriptionIndex) Join(conversationID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[conversationID]
	if !ok {
		set = make(map[string]struct{})
		s.members[conversationID] = set
	}
	set[userID] = struct{}{}
}

func (s *SubscriptionIndex) Leave(conversationID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[conversationID]
	if !ok {
		return
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(s.members, conversationID)
	}
}

// MembersOf returns a snapshot safe to iterate during delivery without
// holding the index lock.
func (s *SubscriptionIndex) MembersOf(conversationID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.members[conversationID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(set))
	for userID := range set {
		members = append(members, userID)
	}
	return members
}

func (s *SubscriptionIndex) Contains(conversationID, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[conversationID][userID]
	return ok
}

func (s *SubscriptionIndex) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}
