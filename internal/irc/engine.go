// Package irc contains the line interpreter that turns raw server lines
// into repository mutations and typed events, plus the connection bootstrap
// that feeds it.
package irc

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/cnaude/PircBotX/internal/caps"
	"github.com/cnaude/PircBotX/internal/event"
	"github.com/cnaude/PircBotX/internal/parse"
	"github.com/cnaude/PircBotX/internal/state"
)

// Engine interprets one connection's inbound line stream. All repository
// mutations, aggregator transitions and capability-handshake transitions
// happen on the single goroutine calling HandleLine, so the engine holds no
// locks. Nothing in here blocks.
type Engine struct {
	repo       *state.Repository
	events     event.Dispatcher
	negotiator *caps.Negotiator
	log        *slog.Logger

	list listAggregator
	who  whoAggregator
}

// NewEngine wires an interpreter to its repository and event sink. The
// negotiator may be nil when no capabilities are being negotiated.
func NewEngine(repo *state.Repository, events event.Dispatcher, negotiator *caps.Negotiator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = event.Discard
	}
	return &Engine{
		repo:       repo,
		events:     events,
		negotiator: negotiator,
		log:        logger,
		who:        whoAggregator{pending: make(map[string][]string)},
	}
}

// Repository exposes the live entity graph.
func (e *Engine) Repository() *state.Repository {
	return e.repo
}

// HandleLine classifies and processes one raw protocol line. Malformed
// input is dropped, never fatal. The only errors returned are capability
// negotiation failures, which the connection bootstrap gets to judge.
func (e *Engine) HandleLine(raw string) error {
	raw = strings.TrimRight(raw, "\r\n")
	line, ok := parse.ParseLine(raw)
	if !ok {
		e.log.Debug("dropping unparseable line", "line", raw)
		return nil
	}

	if line.Command == "CAP" && e.negotiator != nil {
		return e.negotiator.HandleCAP(line.Params)
	}
	if e.negotiator != nil && e.negotiator.Active() {
		if line.Command == "AUTHENTICATE" || isSASLNumeric(line.Command) {
			return e.negotiator.HandleUnknown(raw)
		}
	}

	switch line.Command {
	case "PRIVMSG":
		e.handlePrivmsg(line)
	case "NOTICE":
		e.handleNotice(line)
	case "JOIN":
		e.handleJoin(line)
	case "PART":
		e.handlePart(line)
	case "KICK":
		e.handleKick(line)
	case "QUIT":
		e.handleQuit(line)
	case "NICK":
		e.handleNick(line)
	case "INVITE":
		e.handleInvite(line)
	case "TOPIC":
		e.handleTopic(line)
	case "MODE":
		e.handleMode(line)
	default:
		if line.IsNumeric() {
			e.handleNumeric(line, raw)
		} else {
			e.events.Dispatch(event.Unknown{Raw: raw})
		}
	}
	return nil
}

// handleNumeric routes the reply codes the engine interprets and passes the
// rest through as ServerResponse.
func (e *Engine) handleNumeric(line parse.Line, raw string) {
	code, _ := strconv.Atoi(line.Command)
	switch code {
	case 321:
		e.list.reset()
	case 322:
		e.handleListRow(line)
	case 323:
		e.events.Dispatch(e.list.finish())
	case 352:
		e.handleWhoRow(line)
	case 315:
		e.handleWhoEnd(line)
	case 353:
		e.handleNames(line)
	case 332:
		e.handleTopicText(line)
	case 333:
		e.handleTopicInfo(line)
	default:
		e.events.Dispatch(event.ServerResponse{Code: code, Raw: raw})
	}
}

func isSASLNumeric(command string) bool {
	switch command {
	case "900", "901", "902", "903", "904", "905":
		return true
	}
	return false
}

// isChannelName reports whether target names a channel rather than a nick.
func isChannelName(target string) bool {
	return len(target) > 0 && strings.IndexByte("#&!+", target[0]) >= 0
}
