package irc

import (
	"time"

	"github.com/cnaude/PircBotX/internal/event"
	"github.com/cnaude/PircBotX/internal/parse"
	"github.com/cnaude/PircBotX/internal/state"
)

// handleJoin registers the membership edge and refreshes the joining user's
// login and host from the origin mask.
func (e *Engine) handleJoin(line parse.Line) {
	channel := line.Last()
	if channel == "" {
		e.log.Debug("JOIN without channel dropped", "prefix", line.Prefix)
		return
	}
	origin := parse.ParseOrigin(line.Prefix)
	u := e.repo.GetOrCreateUser(origin.Nick)
	if origin.Login != "" {
		u.Login = origin.Login
	}
	if origin.Host != "" {
		u.Hostmask = origin.Host
	}
	e.repo.Join(origin.Nick, channel)
	e.events.Dispatch(event.Join{Channel: e.repo.GetChannel(channel), User: u})
}

// handlePart removes the membership edge. A part for a user or channel the
// repository never saw is out-of-order input and is dropped.
func (e *Engine) handlePart(line parse.Line) {
	channel := line.Param(0)
	origin := parse.ParseOrigin(line.Prefix)
	u := e.repo.GetUser(origin.Nick)
	c := e.repo.GetChannel(channel)
	if u == nil || c == nil {
		e.log.Debug("PART for unknown entity dropped", "nick", origin.Nick, "channel", channel)
		return
	}
	reason := ""
	if len(line.Params) > 1 {
		reason = line.Last()
	}
	e.repo.Leave(origin.Nick, channel)
	e.events.Dispatch(event.Part{Channel: c, User: u, Reason: reason})
	e.purgeIfGone(u)
}

// handleKick removes the recipient from the channel. The recipient is
// distinct from the actor and may be us; the removal happens either way.
func (e *Engine) handleKick(line parse.Line) {
	if len(line.Params) < 2 {
		e.log.Debug("short KICK dropped", "params", line.Params)
		return
	}
	channel := line.Param(0)
	origin := parse.ParseOrigin(line.Prefix)
	recipient := e.repo.GetUser(line.Param(1))
	c := e.repo.GetChannel(channel)
	if recipient == nil || c == nil {
		e.log.Debug("KICK for unknown entity dropped", "nick", line.Param(1), "channel", channel)
		return
	}
	reason := ""
	if len(line.Params) > 2 {
		reason = line.Last()
	}
	source := e.repo.GetOrCreateUser(origin.Nick)
	e.repo.Leave(recipient.Nick, channel)
	e.events.Dispatch(event.Kick{Channel: c, Source: source, Recipient: recipient, Reason: reason})
	e.purgeIfGone(recipient)
}

// handleQuit removes the user entirely. The event carries the frozen
// pre-removal snapshot; any later entity under the same nick is a new
// identity.
func (e *Engine) handleQuit(line parse.Line) {
	origin := parse.ParseOrigin(line.Prefix)
	snap, ok := e.repo.RemoveUser(origin.Nick)
	if !ok {
		e.log.Debug("QUIT for unknown user dropped", "nick", origin.Nick)
		return
	}
	e.events.Dispatch(event.Quit{User: snap, Reason: line.Last()})
}

// handleNick swaps the user's repository key, preserving identity and all
// role associations.
func (e *Engine) handleNick(line parse.Line) {
	newNick := line.Last()
	if newNick == "" {
		e.log.Debug("NICK without nickname dropped", "prefix", line.Prefix)
		return
	}
	origin := parse.ParseOrigin(line.Prefix)
	u := e.repo.RenameUser(origin.Nick, newNick)
	if u == nil {
		return
	}
	e.events.Dispatch(event.NickChange{OldNick: origin.Nick, NewNick: newNick, User: u})
}

// handleInvite is a pure pass-through. It must not register the inviting
// user or the target channel.
func (e *Engine) handleInvite(line parse.Line) {
	origin := parse.ParseOrigin(line.Prefix)
	e.events.Dispatch(event.Invite{User: origin.Nick, Channel: line.Last()})
}

// handleTopic applies a live TOPIC change, stamping the setter and the
// current time.
func (e *Engine) handleTopic(line parse.Line) {
	if len(line.Params) < 2 {
		e.log.Debug("short TOPIC dropped", "params", line.Params)
		return
	}
	origin := parse.ParseOrigin(line.Prefix)
	c := e.repo.GetOrCreateChannel(line.Param(0))
	c.Topic = line.Last()
	c.TopicSetter = origin.Nick
	c.TopicTimestamp = time.Now().UnixMilli()
	e.events.Dispatch(event.Topic{
		Channel:   c,
		Text:      c.Topic,
		Setter:    c.TopicSetter,
		Timestamp: c.TopicTimestamp,
		Changed:   true,
	})
}

func (e *Engine) handlePrivmsg(line parse.Line) {
	if len(line.Params) < 2 {
		e.log.Debug("short PRIVMSG dropped", "params", line.Params)
		return
	}
	origin := parse.ParseOrigin(line.Prefix)
	u := e.repo.GetOrCreateUser(origin.Nick)
	target := line.Param(0)
	text := line.Last()
	if isChannelName(target) {
		c := e.repo.GetOrCreateChannel(target)
		e.events.Dispatch(event.Message{Channel: c, User: u, Text: text})
		return
	}
	e.events.Dispatch(event.PrivateMessage{User: u, Text: text})
}

func (e *Engine) handleNotice(line parse.Line) {
	if len(line.Params) < 2 {
		e.log.Debug("short NOTICE dropped", "params", line.Params)
		return
	}
	origin := parse.ParseOrigin(line.Prefix)
	u := e.repo.GetOrCreateUser(origin.Nick)
	target := line.Param(0)
	var c *state.Channel
	if isChannelName(target) {
		c = e.repo.GetOrCreateChannel(target)
	}
	e.events.Dispatch(event.Notice{Channel: c, User: u, Text: line.Last()})
}

// purgeIfGone removes a user that no longer holds any membership. No event
// fires; the caller already dispatched the leave that caused this.
func (e *Engine) purgeIfGone(u *state.User) {
	if u.ChannelCount() > 0 {
		return
	}
	e.repo.RemoveUser(u.Nick)
}
