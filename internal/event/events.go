// Package event defines the closed set of typed notifications the protocol
// engine emits, and the dispatcher hook an external listener manager plugs
// into. Responders select on the concrete variant with a type switch; each
// variant carries its response target (channel and/or user) resolved at
// construction time.
package event

import "github.com/cnaude/PircBotX/internal/state"

// Event is one interpreted protocol notification. The set of variants is
// closed; new behavior means a new variant, not a subclass.
type Event interface {
	event()
}

// Dispatcher receives every emitted event. Delivery strategy (threading,
// fan-out, queueing) is the implementation's business; payloads must be
// treated as read-only.
type Dispatcher interface {
	Dispatch(Event)
}

// DispatcherFunc adapts a plain function to the Dispatcher interface.
type DispatcherFunc func(Event)

// Dispatch calls f(e).
func (f DispatcherFunc) Dispatch(e Event) { f(e) }

// Discard drops every event. Useful as a default.
var Discard Dispatcher = DispatcherFunc(func(Event) {})

// Message is a PRIVMSG to a channel.
type Message struct {
	Channel *state.Channel
	User    *state.User
	Text    string
}

// PrivateMessage is a PRIVMSG addressed to us.
type PrivateMessage struct {
	User *state.User
	Text string
}

// Notice is a NOTICE; Channel is nil for a notice sent directly to us.
type Notice struct {
	Channel *state.Channel
	User    *state.User
	Text    string
}

// Join is a user (possibly us) joining a channel.
type Join struct {
	Channel *state.Channel
	User    *state.User
}

// Part is a user leaving a channel.
type Part struct {
	Channel *state.Channel
	User    *state.User
	Reason  string
}

// Kick is a user being removed from a channel by another user.
type Kick struct {
	Channel   *state.Channel
	Source    *state.User
	Recipient *state.User
	Reason    string
}

// Quit carries a frozen snapshot: by the time listeners see it, the live
// entity is already gone from the repository.
type Quit struct {
	User   state.UserSnapshot
	Reason string
}

// NickChange is a nick swap; User is the same live entity under its new key.
type NickChange struct {
	OldNick string
	NewNick string
	User    *state.User
}

// Invite is a pure pass-through: neither the inviting user nor the target
// channel is registered as a side effect, so both are plain strings.
type Invite struct {
	User    string
	Channel string
}

// Topic reports channel topic state. Changed is true when a TOPIC command
// altered it just now, false when the server replayed it on join.
type Topic struct {
	Channel   *state.Channel
	Text      string
	Setter    string
	Timestamp int64 // milliseconds
	Changed   bool
}

// Mode is the generic channel mode notification. It always precedes the
// per-letter specific notifications for the same line.
type Mode struct {
	Channel *state.Channel
	User    *state.User
	Mode    string
	Args    []string
}

// UserMode is the generic notification for a MODE targeting a nick. No
// per-user mode state is kept.
type UserMode struct {
	Source *state.User
	Target *state.User
	Mode   string
}

// Op is an op grant or removal on a roster member.
type Op struct {
	Channel   *state.Channel
	Source    *state.User
	Recipient *state.User
	Set       bool
}

// Voice is a voice grant or removal on a roster member.
type Voice struct {
	Channel   *state.Channel
	Source    *state.User
	Recipient *state.User
	Set       bool
}

// ChannelKey is a +k/-k change.
type ChannelKey struct {
	Channel *state.Channel
	Source  *state.User
	Key     string
	Set     bool
}

// ChannelLimit is a +l/-l change.
type ChannelLimit struct {
	Channel *state.Channel
	Source  *state.User
	Limit   int
	Set     bool
}

// ChannelBan is a +b/-b change.
type ChannelBan struct {
	Channel *state.Channel
	Source  *state.User
	Mask    string
	Set     bool
}

// ChannelFlag is a simple boolean mode change (i, m, n, p, s, t).
type ChannelFlag struct {
	Channel *state.Channel
	Source  *state.User
	Flag    byte
	Set     bool
}

// ChannelListEntry is one row of a /LIST response.
type ChannelListEntry struct {
	Name  string
	Users int
	Topic string
}

// ChannelList is the single result of a 321/322/323 sequence.
type ChannelList struct {
	Entries []ChannelListEntry
}

// UserList is the single result of a WHO sequence for one channel.
type UserList struct {
	Channel *state.Channel
	Users   []*state.User
}

// ServerResponse is a numeric reply the engine doesn't interpret.
type ServerResponse struct {
	Code int
	Raw  string
}

// Unknown is a command the engine doesn't classify.
type Unknown struct {
	Raw string
}

func (Message) event()        {}
func (PrivateMessage) event() {}
func (Notice) event()         {}
func (Join) event()           {}
func (Part) event()           {}
func (Kick) event()           {}
func (Quit) event()           {}
func (NickChange) event()     {}
func (Invite) event()         {}
func (Topic) event()          {}
func (Mode) event()           {}
func (UserMode) event()       {}
func (Op) event()             {}
func (Voice) event()          {}
func (ChannelKey) event()     {}
func (ChannelLimit) event()   {}
func (ChannelBan) event()     {}
func (ChannelFlag) event()    {}
func (ChannelList) event()    {}
func (UserList) event()       {}
func (ServerResponse) event() {}
func (Unknown) event()        {}
