package irc

import (
	"strconv"
	"strings"

	"github.com/cnaude/PircBotX/internal/event"
	"github.com/cnaude/PircBotX/internal/parse"
	"github.com/cnaude/PircBotX/internal/state"
)

// handleMode interprets one MODE line. For a channel target the generic
// notification always precedes the per-letter specific ones; for a nick
// target only the generic user-mode notification fires and no mode state is
// kept.
func (e *Engine) handleMode(line parse.Line) {
	if len(line.Params) < 2 {
		e.log.Debug("short MODE dropped", "params", line.Params)
		return
	}
	origin := parse.ParseOrigin(line.Prefix)
	target := line.Param(0)
	modeLine := strings.Join(line.Params[1:], " ")

	if !isChannelName(target) {
		e.events.Dispatch(event.UserMode{
			Source: e.repo.GetOrCreateUser(origin.Nick),
			Target: e.repo.GetOrCreateUser(target),
			Mode:   modeLine,
		})
		return
	}

	c := e.repo.GetOrCreateChannel(target)
	source := e.repo.GetOrCreateUser(origin.Nick)

	// The second parameter is the mode string; the rest are positional
	// arguments consumed in order by the letters that take one. An argument
	// is whatever sits at the next position, sign prefix or not.
	modes := line.Param(1)
	args := line.Params[2:]
	e.events.Dispatch(event.Mode{Channel: c, User: source, Mode: modeLine, Args: args})

	plus := true
	next := 0
	for i := 0; i < len(modes); i++ {
		switch modes[i] {
		case '+':
			plus = true
			continue
		case '-':
			plus = false
			continue
		}
		flag := modes[i]
		arg := ""
		if state.FlagTakesArg(flag, plus) {
			if next >= len(args) {
				e.log.Debug("mode letter missing argument", "channel", target, "flag", string(flag))
				continue
			}
			arg = args[next]
			next++
		}
		if !e.repo.ApplyChannelFlag(target, plus, flag, arg) {
			continue
		}
		e.dispatchModeLetter(c, source, plus, flag, arg)
	}
}

// dispatchModeLetter emits the specific notification for one applied mode
// letter.
func (e *Engine) dispatchModeLetter(c *state.Channel, source *state.User, plus bool, flag byte, arg string) {
	class, ok := state.LookupFlag(flag)
	if !ok {
		return
	}
	switch class {
	case state.FlagOp:
		e.events.Dispatch(event.Op{Channel: c, Source: source, Recipient: e.repo.GetUser(arg), Set: plus})
	case state.FlagVoice:
		e.events.Dispatch(event.Voice{Channel: c, Source: source, Recipient: e.repo.GetUser(arg), Set: plus})
	case state.FlagKey:
		e.events.Dispatch(event.ChannelKey{Channel: c, Source: source, Key: arg, Set: plus})
	case state.FlagLimit:
		limit := 0
		if plus {
			limit, _ = strconv.Atoi(arg)
		}
		e.events.Dispatch(event.ChannelLimit{Channel: c, Source: source, Limit: limit, Set: plus})
	case state.FlagBan:
		e.events.Dispatch(event.ChannelBan{Channel: c, Source: source, Mask: arg, Set: plus})
	case state.FlagBoolean:
		e.events.Dispatch(event.ChannelFlag{Channel: c, Source: source, Flag: flag, Set: plus})
	}
}
