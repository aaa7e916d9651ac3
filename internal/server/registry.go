// Package server implements the authenticated channel broadcast core of
// Hubgate: the connection registry, the broadcast hub, per-connection
// read/write pumps, and the HTTP surface that upgrades and guards them.
package server

import "sync"

// channelEntry holds one named channel's member set. The fanout mutex
// serializes broadcasts for this channel only, so traffic on unrelated
// channels never contends on it.
type channelEntry struct {
	fanout  sync.Mutex
	members map[*Client]struct{}
}

// Registry maps channel names to their current member sets. Channels are
// created lazily on first join and removed in the same critical section that
// empties them, so an empty channel is never observable and churn of
// short-lived channel names cannot leak entries.
//
// The registry lock is held only for map operations, never while writing to
// sockets.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*channelEntry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*channelEntry)}
}

// Join registers client under the named channel, creating the channel entry
// if absent.
func (r *Registry) Join(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.channels[name]
	if entry == nil {
		entry = &channelEntry{members: make(map[*Client]struct{})}
		r.channels[name] = entry
	}
	entry.members[client] = struct{}{}
}

// Leave removes client from the named channel and deletes the channel entry
// if it became empty. Leaving twice, or leaving a channel never joined, is a
// no-op.
func (r *Registry) Leave(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.channels[name]
	if entry == nil {
		return
	}
	if _, ok := entry.members[client]; !ok {
		return
	}
	delete(entry.members, client)
	if len(entry.members) == 0 {
		delete(r.channels, name)
	}
}

// Snapshot returns the channel's current members other than excluding. The
// result reflects membership at call time; joins and leaves during a
// subsequent iteration are an accepted best-effort race.
func (r *Registry) Snapshot(name string, excluding *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.channels[name]
	if entry == nil {
		return nil
	}
	members := make([]*Client, 0, len(entry.members))
	for member := range entry.members {
		if member == excluding {
			continue
		}
		members = append(members, member)
	}
	return members
}

// forEachMember invokes deliver for every member of the named channel except
// excluding, holding the channel's fanout lock so concurrent broadcasts to
// the same channel initiate delivery in a single order. deliver must not
// block or perform I/O. Members for which deliver returns false are returned.
func (r *Registry) forEachMember(name string, excluding *Client, deliver func(*Client) bool) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.channels[name]
	if entry == nil {
		return nil
	}

	entry.fanout.Lock()
	defer entry.fanout.Unlock()

	var failed []*Client
	for member := range entry.members {
		if member == excluding {
			continue
		}
		if !deliver(member) {
			failed = append(failed, member)
		}
	}
	return failed
}

// Contains reports whether the named channel currently exists.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[name]
	return ok
}

// MemberCount returns the number of members in the named channel, zero if it
// does not exist.
func (r *Registry) MemberCount(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.channels[name]
	if entry == nil {
		return 0
	}
	return len(entry.members)
}

// ChannelCount returns the number of channels with at least one member.
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}
