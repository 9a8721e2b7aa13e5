package chat

import (
	"sort"
	"sync"
)

// Member is one entry of a room's member set.
type Member struct {
	ID   ConnID
	Name string
}

// RoomCount pairs a room code with its member count after a mutation.
type RoomCount struct {
	Room  string
	Count int
}

// Directory maps room codes to member sets. Every operation runs under a single lock
// so member counts for a room always follow one serial order of joins and leaves.
type Directory struct {
	mu      sync.RWMutex
	rooms   map[string]map[ConnID]string
	joined  map[ConnID]map[string]struct{}
	reclaim bool
}

// NewDirectory creates an empty directory. With reclaim set, a room is dropped as soon
// as its last member leaves; otherwise rooms stay allocated once created.
func NewDirectory(reclaim bool) *Directory {
	return &Directory{
		rooms:   make(map[string]map[ConnID]string),
		joined:  make(map[ConnID]map[string]struct{}),
		reclaim: reclaim,
	}
}

// Join adds id to room, creating the room if needed, and returns the member count.
// Joining a room twice does not change the count or the recorded name.
func (d *Directory) Join(id ConnID, room, name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	members, ok := d.rooms[room]
	if !ok {
		members = make(map[ConnID]string)
		d.rooms[room] = members
	}
	if _, ok := members[id]; !ok {
		members[id] = name
	}

	set, ok := d.joined[id]
	if !ok {
		set = make(map[string]struct{})
		d.joined[id] = set
	}
	set[room] = struct{}{}

	return len(members)
}

// Leave removes id from room and returns the remaining member count.
// It is a no-op when id is not a member or the room does not exist.
func (d *Directory) Leave(id ConnID, room string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.leaveLocked(id, room)
}

// LeaveAll removes id from every room it belongs to and reports the new counts,
// ordered by room code.
func (d *Directory) LeaveAll(id ConnID) []RoomCount {
	d.mu.Lock()
	defer d.mu.Unlock()

	set := d.joined[id]
	if len(set) == 0 {
		return nil
	}
	codes := make([]string, 0, len(set))
	for room := range set {
		codes = append(codes, room)
	}
	sort.Strings(codes)

	out := make([]RoomCount, 0, len(codes))
	for _, room := range codes {
		out = append(out, RoomCount{Room: room, Count: d.leaveLocked(id, room)})
	}
	return out
}

func (d *Directory) leaveLocked(id ConnID, room string) int {
	members, ok := d.rooms[room]
	if !ok {
		return 0
	}
	if _, ok := members[id]; ok {
		delete(members, id)
		if set := d.joined[id]; set != nil {
			delete(set, room)
			if len(set) == 0 {
				delete(d.joined, id)
			}
		}
	}
	if d.reclaim && len(members) == 0 {
		delete(d.rooms, room)
	}
	return len(members)
}

// IsMember reports whether id currently belongs to room.
func (d *Directory) IsMember(id ConnID, room string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[room][id]
	return ok
}

// Exists reports whether room has ever been created (and not reclaimed).
func (d *Directory) Exists(room string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[room]
	return ok
}

// Members returns a copy of the member set of room.
func (d *Directory) Members(room string) []Member {
	d.mu.RLock()
	defer d.mu.RUnlock()

	members := d.rooms[room]
	out := make([]Member, 0, len(members))
	for id, name := range members {
		out = append(out, Member{ID: id, Name: name})
	}
	return out
}

// Rooms returns the number of allocated rooms.
func (d *Directory) Rooms() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
