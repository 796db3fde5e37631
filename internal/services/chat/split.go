package chat

import (
	"sync"
	"time"
)

// splitTargets remembers, per base conversation, where the last split went.
// A send that finds the same stale base within the window joins that
// conversation instead of splitting again.
type splitTargets struct {
	mu      sync.Mutex
	targets map[string]splitTarget
}

type splitTarget struct {
	conversationID string
	at             time.Time
}

func newSplitTargets() *splitTargets {
	return &splitTargets{targets: make(map[string]splitTarget)}
}

// lookup returns the split target of baseID if it was recorded within gap
// of now.
func (s *splitTargets) lookup(baseID string, now time.Time, gap time.Duration) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[baseID]
	if !ok {
		return "", false
	}
	if now.Sub(target.at) > gap {
		delete(s.targets, baseID)
		return "", false
	}
	return target.conversationID, true
}

// record stores baseID's split target and drops entries older than gap.
func (s *splitTargets) record(baseID, conversationID string, at time.Time, gap time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, target := range s.targets {
		if at.Sub(target.at) > gap {
			delete(s.targets, id)
		}
	}
	s.targets[baseID] = splitTarget{conversationID: conversationID, at: at}
}

func (s *splitTargets) forget(baseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, baseID)
}

func (s *splitTargets) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.targets)
}
