package state

import (
	"log/slog"
	"strconv"
	"strings"
)

// FlagClass describes what a channel mode letter acts on.
type FlagClass int

const (
	FlagBoolean FlagClass = iota // accumulated into the channel mode string
	FlagKey
	FlagLimit
	FlagBan
	FlagOp
	FlagVoice
)

// channelFlags maps mode letters to their semantics. Letters missing from
// the table are ignored by ApplyChannelFlag.
var channelFlags = map[byte]FlagClass{
	'i': FlagBoolean, // invite-only
	'm': FlagBoolean, // moderated
	'n': FlagBoolean, // no external messages
	'p': FlagBoolean, // private
	's': FlagBoolean, // secret
	't': FlagBoolean, // topic protection
	'k': FlagKey,
	'l': FlagLimit,
	'b': FlagBan,
	'o': FlagOp,
	'v': FlagVoice,
}

// LookupFlag returns the class of a channel mode letter.
func LookupFlag(flag byte) (FlagClass, bool) {
	class, ok := channelFlags[flag]
	return class, ok
}

// FlagTakesArg reports whether the mode letter consumes one positional
// argument for the given sign. Removing a limit takes no argument.
func FlagTakesArg(flag byte, plus bool) bool {
	switch channelFlags[flag] {
	case FlagOp, FlagVoice, FlagBan, FlagKey:
		return true
	case FlagLimit:
		return plus
	}
	return false
}

// Repository owns the live graph of users, channels, memberships and roles.
// It is the single source of truth for entity state and is driven from one
// logical worker; it does no locking of its own.
type Repository struct {
	users    map[string]*User
	channels map[string]*Channel
	log      *slog.Logger
}

// NewRepository returns an empty repository. A nil logger falls back to
// slog.Default.
func NewRepository(logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		users:    make(map[string]*User),
		channels: make(map[string]*Channel),
		log:      logger,
	}
}

// GetOrCreateUser returns the user registered under nick, creating and
// registering a default one if needed. Creation implies no membership.
func (r *Repository) GetOrCreateUser(nick string) *User {
	if u, ok := r.users[nick]; ok {
		return u
	}
	u := &User{Nick: nick, channels: make(map[string]struct{})}
	r.users[nick] = u
	return u
}

// GetUser returns the user registered under nick, or nil.
func (r *Repository) GetUser(nick string) *User {
	return r.users[nick]
}

// UserExists reports whether nick resolves to a live user.
func (r *Repository) UserExists(nick string) bool {
	_, ok := r.users[nick]
	return ok
}

// GetOrCreateChannel returns the channel registered under name, creating a
// default one if needed.
func (r *Repository) GetOrCreateChannel(name string) *Channel {
	if c, ok := r.channels[name]; ok {
		return c
	}
	c := &Channel{
		Name:    name,
		bans:    make(map[string]struct{}),
		members: make(map[string]*Roles),
	}
	r.channels[name] = c
	return c
}

// GetChannel returns the channel registered under name, or nil.
func (r *Repository) GetChannel(name string) *Channel {
	return r.channels[name]
}

// ChannelExists reports whether name resolves to a live channel.
func (r *Repository) ChannelExists(name string) bool {
	_, ok := r.channels[name]
	return ok
}

// Join adds the bidirectional membership edge between nick and channel.
// Both entities are created if missing.
func (r *Repository) Join(nick, channel string) {
	u := r.GetOrCreateUser(nick)
	c := r.GetOrCreateChannel(channel)
	u.channels[channel] = struct{}{}
	if _, ok := c.members[nick]; !ok {
		c.members[nick] = &Roles{}
	}
}

// Leave removes the membership edge and clears the user's role set for that
// channel. Leaving a channel the user isn't in is a no-op.
func (r *Repository) Leave(nick, channel string) {
	if u, ok := r.users[nick]; ok {
		delete(u.channels, channel)
	}
	if c, ok := r.channels[channel]; ok {
		delete(c.members, nick)
	}
}

// SetRole sets or clears op or voice for a roster member. The operation is
// idempotent; clearing an unset role is a no-op. Targeting a user outside
// the roster is an invariant violation: logged, mutation skipped.
func (r *Repository) SetRole(channel, nick string, role Role, present bool) bool {
	c, ok := r.channels[channel]
	if !ok {
		r.log.Warn("role change against unknown channel", "channel", channel, "nick", nick, "role", role.String())
		return false
	}
	roles, ok := c.members[nick]
	if !ok {
		r.log.Warn("role change for user outside roster", "channel", channel, "nick", nick, "role", role.String())
		return false
	}
	if role == RoleOp {
		roles.Op = present
	} else {
		roles.Voice = present
	}
	return true
}

// RenameUser swaps a user's lookup key atomically. The entity keeps its
// identity; per-channel role associations are untouched because rosters are
// re-keyed in the same step.
func (r *Repository) RenameUser(oldNick, newNick string) *User {
	u, ok := r.users[oldNick]
	if !ok {
		r.log.Warn("rename of unknown user", "old", oldNick, "new", newNick)
		return nil
	}
	if _, taken := r.users[newNick]; taken && oldNick != newNick {
		r.log.Warn("rename collides with live nick", "old", oldNick, "new", newNick)
		return nil
	}
	delete(r.users, oldNick)
	u.Nick = newNick
	r.users[newNick] = u
	for name := range u.channels {
		c := r.channels[name]
		if c == nil {
			continue
		}
		if roles, ok := c.members[oldNick]; ok {
			delete(c.members, oldNick)
			c.members[newNick] = roles
		}
	}
	return u
}

// RemoveUser detaches the user from every roster and deletes it from the
// repository. The returned snapshot freezes the final field values for
// notification payloads.
func (r *Repository) RemoveUser(nick string) (UserSnapshot, bool) {
	u, ok := r.users[nick]
	if !ok {
		return UserSnapshot{}, false
	}
	snap := UserSnapshot{
		Nick:     u.Nick,
		Login:    u.Login,
		Hostmask: u.Hostmask,
		RealName: u.RealName,
		Server:   u.Server,
		Hops:     u.Hops,
		Away:     u.Away,
		Channels: u.Channels(),
	}
	for name := range u.channels {
		if c, ok := r.channels[name]; ok {
			delete(c.members, nick)
		}
	}
	u.channels = make(map[string]struct{})
	delete(r.users, nick)
	return snap, true
}

// ApplyChannelFlag looks up flag in the static table and updates the
// matching field or role on the channel. Unknown flags are logged and
// ignored. The return value reports whether state actually changed hands.
func (r *Repository) ApplyChannelFlag(channel string, plus bool, flag byte, arg string) bool {
	c := r.GetOrCreateChannel(channel)
	class, ok := channelFlags[flag]
	if !ok {
		r.log.Warn("unknown channel mode flag", "channel", channel, "flag", string(flag))
		return false
	}
	switch class {
	case FlagBoolean:
		r.applyBooleanFlag(c, plus, flag)
	case FlagKey:
		if plus {
			c.Key = arg
		} else {
			c.Key = ""
		}
	case FlagLimit:
		if plus {
			n, err := strconv.Atoi(arg)
			if err != nil {
				r.log.Debug("non-numeric channel limit", "channel", channel, "arg", arg)
				return false
			}
			c.Limit = n
		} else {
			c.Limit = 0
		}
	case FlagBan:
		if plus {
			c.bans[arg] = struct{}{}
		} else {
			delete(c.bans, arg)
		}
	case FlagOp:
		return r.SetRole(channel, arg, RoleOp, plus)
	case FlagVoice:
		return r.SetRole(channel, arg, RoleVoice, plus)
	}
	return true
}

// applyBooleanFlag recomputes the boolean mode string. Setting a set flag
// and clearing a clear flag are both no-ops.
func (r *Repository) applyBooleanFlag(c *Channel, plus bool, flag byte) {
	present := strings.IndexByte(c.mode, flag) >= 0
	if plus && !present {
		c.mode += string(flag)
	} else if !plus && present {
		c.mode = strings.Replace(c.mode, string(flag), "", 1)
	}
}

// UserCount returns the number of live users.
func (r *Repository) UserCount() int {
	return len(r.users)
}

// ChannelCount returns the number of live channels.
func (r *Repository) ChannelCount() int {
	return len(r.channels)
}
