package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Emitter delivers room membership transitions to the live channel. Join
// carries the selection generation so a stale confirmation can be detected.
type Emitter interface {
	JoinRoom(chatID string, gen uint64) error
	LeaveRoom(chatID string) error
}

// RoomChannel owns the 1:1 mapping between the selected chat and the joined
// live-channel room. At most one room is joined at any time; leave for the
// previous room is always emitted before join of the next.
type RoomChannel struct {
	auth AuthReader
	emit Emitter
	log  *zerolog.Logger

	mu        sync.Mutex
	selected  *Chat
	joined    string
	gen       uint64
	confirmed bool
}

// NewRoomChannel creates a channel with no selection.
func NewRoomChannel(auth AuthReader, emit Emitter, logger *zerolog.Logger) *RoomChannel {
	return &RoomChannel{auth: auth, emit: emit, log: logger}
}

// Select makes chat the current selection and performs the leave/join
// transition. A nil chat clears the selection (leaving any joined room).
// On guard failure the selection becomes none and nothing is emitted: an
// unauthenticated selection attempt means "no selection", not an error
// the caller must display.
func (r *RoomChannel) Select(chat *Chat) error {
	if err := r.auth.RequireAuth(); err != nil {
		r.mu.Lock()
		r.selected = nil
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	prev := r.joined
	r.gen++
	gen := r.gen
	r.confirmed = false

	var next Chat
	if chat != nil {
		next = *chat
		r.selected = &next
		r.joined = next.ID
	} else {
		r.selected = nil
		r.joined = ""
	}
	r.mu.Unlock()

	// Leave before join, so the remote end never sees two memberships.
	if prev != "" {
		if err := r.emit.LeaveRoom(prev); err != nil {
			r.log.Warn().Err(err).Str("room", prev).Msg("leave emission failed")
		}
	}
	if chat != nil && next.ID != "" {
		if err := r.emit.JoinRoom(next.ID, gen); err != nil {
			r.log.Warn().Err(err).Str("room", next.ID).Msg("join emission failed")
		}
	}
	return nil
}

// ConfirmJoin processes a join acknowledgment from the live channel.
// Returns false for stale confirmations: acks carrying a superseded
// generation, or a room that is no longer the current one.
func (r *RoomChannel) ConfirmJoin(chatID string, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen || chatID != r.joined {
		r.log.Debug().Str("room", chatID).Uint64("gen", gen).Uint64("current_gen", r.gen).Msg("stale join confirmation discarded")
		return false
	}
	r.confirmed = true
	return true
}

// Selected returns a copy of the currently selected chat, nil when none.
func (r *RoomChannel) Selected() *Chat {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return nil
	}
	c := *r.selected
	return &c
}

// SelectedID returns the selected chat's id, empty when none.
func (r *RoomChannel) SelectedID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.selected == nil {
		return ""
	}
	return r.selected.ID
}

// JoinConfirmed reports whether the server acknowledged the current join.
// False while a join is in flight or after a stale-only ack.
func (r *RoomChannel) JoinConfirmed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.confirmed
}

// JoinedRoom returns the id of the joined room, empty when none.
func (r *RoomChannel) JoinedRoom() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joined
}

// Reset drops the selection and leaves any joined room without a guard
// check. Used on logout teardown, when the guard would already fail.
func (r *RoomChannel) Reset() {
	r.mu.Lock()
	prev := r.joined
	r.selected = nil
	r.joined = ""
	r.gen++
	r.confirmed = false
	r.mu.Unlock()

	if prev != "" {
		if err := r.emit.LeaveRoom(prev); err != nil {
			r.log.Debug().Err(err).Str("room", prev).Msg("leave emission failed during reset")
		}
	}
}
