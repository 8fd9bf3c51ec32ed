package state

// Role is a per-channel, per-user flag.
type Role int

const (
	RoleOp Role = iota
	RoleVoice
)

func (r Role) String() string {
	if r == RoleOp {
		return "op"
	}
	return "voice"
}

// Roles is the role set one channel member holds.
type Roles struct {
	Op    bool
	Voice bool
}

// User is a live repository entity. Identity persists across nick changes;
// a user purged after QUIT or a kick from its last channel is a different
// identity from any later entity created under the same nick.
type User struct {
	Nick     string
	Login    string
	Hostmask string
	RealName string
	Server   string
	Hops     int
	Away     bool

	// channel names this user is joined to; membership only, no ownership
	channels map[string]struct{}
}

// Channels returns the names of the channels this user is joined to.
func (u *User) Channels() []string {
	out := make([]string, 0, len(u.channels))
	for name := range u.channels {
		out = append(out, name)
	}
	return out
}

// ChannelCount returns the number of channels this user is joined to.
func (u *User) ChannelCount() int {
	return len(u.channels)
}

// InChannel reports whether the user is joined to the named channel.
func (u *User) InChannel(name string) bool {
	_, ok := u.channels[name]
	return ok
}

// UserSnapshot is a frozen copy of a user's fields taken at removal time.
// It is only used for notification payloads and never mutates.
type UserSnapshot struct {
	Nick     string
	Login    string
	Hostmask string
	RealName string
	Server   string
	Hops     int
	Away     bool
	Channels []string
}

// Channel is a live repository entity keyed by its immutable name.
type Channel struct {
	Name           string
	Topic          string
	TopicSetter    string
	TopicTimestamp int64 // milliseconds

	Key   string
	Limit int

	mode    string // accumulated no-argument boolean flags only
	bans    map[string]struct{}
	members map[string]*Roles // nick -> role set
}

// Mode returns the accumulated boolean mode string. Op, voice, key, limit
// and ban state never appear here; they have dedicated fields.
func (c *Channel) Mode() string {
	return c.mode
}

// Members returns the nicks currently in the roster.
func (c *Channel) Members() []string {
	out := make([]string, 0, len(c.members))
	for nick := range c.members {
		out = append(out, nick)
	}
	return out
}

// HasMember reports whether nick is in the roster.
func (c *Channel) HasMember(nick string) bool {
	_, ok := c.members[nick]
	return ok
}

// IsOp reports whether nick holds op in this channel.
func (c *Channel) IsOp(nick string) bool {
	r, ok := c.members[nick]
	return ok && r.Op
}

// HasVoice reports whether nick holds voice in this channel.
func (c *Channel) HasVoice(nick string) bool {
	r, ok := c.members[nick]
	return ok && r.Voice
}

// Bans returns the current ban mask set.
func (c *Channel) Bans() []string {
	out := make([]string, 0, len(c.bans))
	for mask := range c.bans {
		out = append(out, mask)
	}
	return out
}

// HasBan reports whether mask is in the ban set.
func (c *Channel) HasBan(mask string) bool {
	_, ok := c.bans[mask]
	return ok
}
