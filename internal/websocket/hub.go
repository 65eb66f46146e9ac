package websocket

import (
	"log/slog"
	"sync"
)

// Member is one live session that can receive broadcast frames.
// Send must not block; it reports false when the frame was dropped.
type Member interface {
	Send(data []byte) bool
}

// Registry tracks which members belong to which broadcast group.
// Members returns a snapshot that stays valid while members join or leave.
type Registry interface {
	Join(group string, m Member)
	Leave(group string, m Member)
	Members(group string) []Member
}

// Hub is the in-process Registry. Empty groups are removed on Leave so
// membership does not grow with disconnected users.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[Member]struct{}
	logger *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[Member]struct{}),
		logger: logger,
	}
}

// Join adds a member to a group.
func (h *Hub) Join(group string, m Member) {
	h.mu.Lock()
	members, ok := h.groups[group]
	if !ok {
		members = make(map[Member]struct{})
		h.groups[group] = members
	}
	members[m] = struct{}{}
	h.mu.Unlock()
}

// Leave removes a member from a group. Leaving twice is a no-op.
func (h *Hub) Leave(group string, m Member) {
	h.mu.Lock()
	if members, ok := h.groups[group]; ok {
		delete(members, m)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	h.mu.Unlock()
}

// Members returns a copy of the group's membership at the time of the call.
func (h *Hub) Members(group string) []Member {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.groups[group]
	out := make([]Member, 0, len(members))
	for m := range members {
		out = append(out, m)
	}
	return out
}

// Broadcast sends data to every member of group and returns how many
// accepted it. Slow or closed members are skipped.
func (h *Hub) Broadcast(group string, data []byte) int {
	delivered := 0
	for _, m := range h.Members(group) {
		if m.Send(data) {
			delivered++
			continue
		}
		h.logger.Debug("broadcast dropped", "group", group)
	}
	return delivered
}

// MemberCount returns the number of members in a group.
func (h *Hub) MemberCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// GroupCount returns the number of groups with at least one member.
func (h *Hub) GroupCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}
