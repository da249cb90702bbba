package genesys

import "sync"

// Roster accumulates every user ever seen as a direct report across repeated
// traversals, deduplicated by ID with first-seen order preserved. It backs
// the "all subordinates discovered so far" export and is cleared whenever the
// chart recenters on a new target.
type Roster struct {
	mutex sync.Mutex
	seen  map[string]struct{}
	users []*User
}

func NewRoster() *Roster {
	return &Roster{
		seen: make(map[string]struct{}),
	}
}

// Add appends every user whose ID has not been seen yet. Users without an ID
// are skipped.
func (r *Roster) Add(users ...*User) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range users {
		if u == nil || u.ID == "" {
			continue
		}
		if _, ok := r.seen[u.ID]; ok {
			continue
		}
		r.seen[u.ID] = struct{}{}
		r.users = append(r.users, u)
	}
}

func (r *Roster) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.seen = make(map[string]struct{})
	r.users = nil
}

// Snapshot returns a copy of the accumulated users in first-seen order.
func (r *Roster) Snapshot() []*User {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]*User, len(r.users))
	copy(out, r.users)
	return out
}

func (r *Roster) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.users)
}
