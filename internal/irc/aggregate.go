package irc

import (
	"strconv"
	"strings"

	"github.com/cnaude/PircBotX/internal/event"
	"github.com/cnaude/PircBotX/internal/parse"
	"github.com/cnaude/PircBotX/internal/state"
)

// listAggregator folds a 321/322/323 LIST sequence into one result. The
// rows never emit individually.
type listAggregator struct {
	entries []event.ChannelListEntry
}

func (a *listAggregator) reset() {
	a.entries = nil
}

func (a *listAggregator) add(entry event.ChannelListEntry) {
	a.entries = append(a.entries, entry)
}

func (a *listAggregator) finish() event.ChannelList {
	result := event.ChannelList{Entries: a.entries}
	a.entries = nil
	return result
}

// handleListRow parses one 322 reply:
//
//	:server 322 <me> <channel> <count> :<topic>
func (e *Engine) handleListRow(line parse.Line) {
	if len(line.Params) < 3 {
		e.log.Debug("short LIST row dropped", "params", line.Params)
		return
	}
	count, err := strconv.Atoi(line.Param(2))
	if err != nil {
		e.log.Debug("non-numeric LIST user count", "count", line.Param(2))
		return
	}
	topic := ""
	if len(line.Params) > 3 {
		topic = line.Param(3)
	}
	e.list.add(event.ChannelListEntry{Name: line.Param(1), Users: count, Topic: topic})
}

// whoAggregator stages WHO rows per channel until the 315 terminator.
type whoAggregator struct {
	pending map[string][]string // channel -> nicks in arrival order
}

func (a *whoAggregator) stage(channel, nick string) {
	for _, staged := range a.pending[channel] {
		if staged == nick {
			return
		}
	}
	a.pending[channel] = append(a.pending[channel], nick)
}

func (a *whoAggregator) take(channel string) []string {
	nicks := a.pending[channel]
	delete(a.pending, channel)
	return nicks
}

// handleWhoRow applies one 352 reply:
//
//	:server 352 <me> <channel> <login> <host> <server> <nick> <flags> :<hops> <realname>
//
// The named user's full profile is created or updated and staged; no event
// fires until the terminator.
func (e *Engine) handleWhoRow(line parse.Line) {
	if len(line.Params) < 8 {
		e.log.Debug("short WHO row dropped", "params", line.Params)
		return
	}
	channel := line.Param(1)
	nick := line.Param(5)
	flags := line.Param(6)

	u := e.repo.GetOrCreateUser(nick)
	u.Login = line.Param(2)
	u.Hostmask = line.Param(3)
	u.Server = line.Param(4)
	u.Away = strings.Contains(flags, "G")

	hops, realName, _ := strings.Cut(line.Last(), " ")
	if n, err := strconv.Atoi(hops); err == nil {
		u.Hops = n
	}
	u.RealName = realName

	e.repo.Join(nick, channel)
	if strings.Contains(flags, "@") {
		e.repo.SetRole(channel, nick, state.RoleOp, true)
	}
	if strings.Contains(flags, "+") {
		e.repo.SetRole(channel, nick, state.RoleVoice, true)
	}
	e.who.stage(channel, nick)
}

// handleWhoEnd emits exactly the staged set for the terminated channel.
func (e *Engine) handleWhoEnd(line parse.Line) {
	if len(line.Params) < 2 {
		e.log.Debug("short WHO terminator dropped", "params", line.Params)
		return
	}
	channel := line.Param(1)
	nicks := e.who.take(channel)
	users := make([]*state.User, 0, len(nicks))
	for _, nick := range nicks {
		if u := e.repo.GetUser(nick); u != nil {
			users = append(users, u)
		}
	}
	e.events.Dispatch(event.UserList{Channel: e.repo.GetOrCreateChannel(channel), Users: users})
}

// namesPrefixes maps NAMES status symbols to roles. Symbols are combinable
// and stripped in order.
var namesPrefixes = map[byte]state.Role{
	'@': state.RoleOp,
	'+': state.RoleVoice,
}

// handleNames applies one 353 reply immediately; there is no terminator
// dependency:
//
//	:server 353 <me> = <channel> :@nick1 +nick2 nick3
func (e *Engine) handleNames(line parse.Line) {
	if len(line.Params) < 3 {
		e.log.Debug("short NAMES row dropped", "params", line.Params)
		return
	}
	channel := line.Param(len(line.Params) - 2)
	for _, token := range strings.Fields(line.Last()) {
		var roles []state.Role
		for len(token) > 0 {
			role, ok := namesPrefixes[token[0]]
			if !ok {
				break
			}
			roles = append(roles, role)
			token = token[1:]
		}
		if token == "" {
			continue
		}
		e.repo.Join(token, channel)
		for _, role := range roles {
			e.repo.SetRole(channel, token, role, true)
		}
	}
}

// handleTopicText sets the topic from a 332 reply. No event fires; 333
// carries the rest of the story.
func (e *Engine) handleTopicText(line parse.Line) {
	if len(line.Params) < 3 {
		e.log.Debug("short topic reply dropped", "params", line.Params)
		return
	}
	c := e.repo.GetOrCreateChannel(line.Param(1))
	c.Topic = line.Last()
}

// handleTopicInfo sets topic setter and timestamp from a 333 reply and is
// the sole numeric trigger for the topic notification. The server reports
// epoch seconds; the repository keeps milliseconds.
func (e *Engine) handleTopicInfo(line parse.Line) {
	if len(line.Params) < 4 {
		e.log.Debug("short topic info reply dropped", "params", line.Params)
		return
	}
	ts, err := strconv.ParseInt(line.Param(3), 10, 64)
	if err != nil {
		e.log.Debug("non-numeric topic timestamp", "timestamp", line.Param(3))
		return
	}
	c := e.repo.GetOrCreateChannel(line.Param(1))
	c.TopicSetter = line.Param(2)
	c.TopicTimestamp = ts * 1000
	e.events.Dispatch(event.Topic{
		Channel:   c,
		Text:      c.Topic,
		Setter:    c.TopicSetter,
		Timestamp: c.TopicTimestamp,
	})
}
