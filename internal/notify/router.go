package notify

import (
	"log/slog"
	"strconv"
)

// UserChecker reports whether a user id still exists.
type UserChecker interface {
	Exists(id int64) (bool, error)
}

// ParentLookup returns the parent user of a child, or 0 if none.
type ParentLookup interface {
	ParentID(childID int64) (int64, error)
}

// GroupName returns the broadcast group a user's sessions join.
func GroupName(userID int64) string {
	return "user_" + strconv.FormatInt(userID, 10) + "_notifications"
}

// Router decides which users receive an event.
type Router struct {
	users    UserChecker
	children ParentLookup
	logger   *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(users UserChecker, children ParentLookup, logger *slog.Logger) *Router {
	return &Router{users: users, children: children, logger: logger}
}

// Resolve returns the distinct, existing target user ids for ev. Targets
// that cannot be resolved are skipped and logged; the rest still deliver.
// Child devices never have a group of their own: location goes to the
// child's parent.
func (r *Router) Resolve(ev Event) []int64 {
	var candidates []int64
	a := ev.Audience

	switch {
	case ev.Type == EventNewMessage, ev.Type == EventMessagesRead:
		candidates = []int64{a.Sender, a.Receiver}
	case ev.Type == EventLocationUpdate:
		// No live-location sharing exists yet, so only the parent.
		parent, err := r.children.ParentID(a.ChildID)
		if err != nil {
			r.logger.Error("resolve parent", "child_id", a.ChildID, "error", err)
			return nil
		}
		candidates = []int64{parent}
	case ev.Type.isEta():
		candidates = append([]int64{a.Sharer}, a.SharedWith...)
	case ev.Type.Wrapped():
		candidates = []int64{a.Recipient}
	default:
		r.logger.Warn("no routing rule", "type", ev.Type)
		return nil
	}

	seen := make(map[int64]struct{}, len(candidates))
	targets := make([]int64, 0, len(candidates))
	for _, id := range candidates {
		if id == 0 {
			r.logger.Warn("missing target", "type", ev.Type)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ok, err := r.users.Exists(id)
		if err != nil {
			r.logger.Error("check target", "type", ev.Type, "user_id", id, "error", err)
			continue
		}
		if !ok {
			r.logger.Warn("target user not found", "type", ev.Type, "user_id", id)
			continue
		}
		targets = append(targets, id)
	}
	return targets
}
