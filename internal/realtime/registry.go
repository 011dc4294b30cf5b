package realtime

import "sync"

// Registry remembers every desired subscription so the feed can replay
// them after a reconnect.
// ⭐ SSOT: 구독 상태는 이 레지스트리에서만 관리
type Registry struct {
	mu   sync.RWMutex
	subs map[Topic]map[string]struct{}
}

// NewRegistry creates an empty subscription registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[Topic]map[string]struct{})}
}

// Add records a subscription. Returns false when it was already present.
func (r *Registry) Add(topic Topic, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes, ok := r.subs[topic]
	if !ok {
		codes = make(map[string]struct{})
		r.subs[topic] = codes
	}
	if _, exists := codes[code]; exists {
		return false
	}
	codes[code] = struct{}{}
	return true
}

// Remove drops a subscription. Returns false when it was not present.
func (r *Registry) Remove(topic Topic, code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	codes, ok := r.subs[topic]
	if !ok {
		return false
	}
	if _, exists := codes[code]; !exists {
		return false
	}
	delete(codes, code)
	if len(codes) == 0 {
		delete(r.subs, topic)
	}
	return true
}

// Snapshot returns a copy of all subscriptions, topic by topic.
func (r *Registry) Snapshot() map[Topic][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Topic][]string, len(r.subs))
	for topic, codes := range r.subs {
		list := make([]string, 0, len(codes))
		for code := range codes {
			list = append(list, code)
		}
		out[topic] = list
	}
	return out
}

// Len returns the total number of registered subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, codes := range r.subs {
		n += len(codes)
	}
	return n
}
