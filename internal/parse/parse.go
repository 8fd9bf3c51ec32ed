package parse

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Line is one tokenized IRC protocol line.
type Line struct {
	Prefix  string   // origin mask or server name, without the leading ':'
	Command string   // alphabetic word or three-digit numeric
	Params  []string // ordered parameters; a trailing parameter may contain spaces
}

// ParseLine splits a single already-delimited protocol line into prefix,
// command and parameters. The final parameter may be introduced by a colon
// and contain spaces; an explicit empty trailing parameter (":" followed by
// nothing) is kept as an empty string. Lines that don't yield at least a
// command return ok=false and are meant to be dropped by the caller.
func ParseLine(raw string) (line Line, ok bool) {
	raw = strings.TrimRight(raw, "\r\n")
	rest := raw

	if strings.HasPrefix(rest, ":") {
		idx := strings.Index(rest, " ")
		if idx < 0 {
			return Line{}, false
		}
		line.Prefix = rest[1:idx]
		rest = rest[idx+1:]
	}

	for len(rest) > 0 {
		if strings.HasPrefix(rest, ":") && line.Command != "" {
			// Trailing parameter, possibly empty.
			line.Params = append(line.Params, rest[1:])
			break
		}
		var token string
		if idx := strings.Index(rest, " "); idx >= 0 {
			token, rest = rest[:idx], rest[idx+1:]
		} else {
			token, rest = rest, ""
		}
		if token == "" {
			continue
		}
		if line.Command == "" {
			line.Command = token
		} else {
			line.Params = append(line.Params, token)
		}
	}

	if !validCommand(line.Command) {
		return Line{}, false
	}
	return line, true
}

// validCommand reports whether tok is an alphabetic word or exactly three digits.
func validCommand(tok string) bool {
	if tok == "" {
		return false
	}
	digits := true
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if c < '0' || c > '9' {
			digits = false
			break
		}
	}
	if digits {
		return len(tok) == 3
	}
	for i := 0; i < len(tok); i++ {
		c := tok[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// IsNumeric reports whether the command token is a three-digit reply code.
func (l Line) IsNumeric() bool {
	return len(l.Command) == 3 && l.Command[0] >= '0' && l.Command[0] <= '9'
}

// Param returns the i'th parameter or the empty string.
func (l Line) Param(i int) string {
	if i < 0 || i >= len(l.Params) {
		return ""
	}
	return l.Params[i]
}

// Last returns the final parameter or the empty string.
func (l Line) Last() string {
	if len(l.Params) == 0 {
		return ""
	}
	return l.Params[len(l.Params)-1]
}

// Origin holds the pieces of a nick!login@host origin mask. For a bare
// server-name prefix only Nick is set.
type Origin struct {
	Nick  string
	Login string
	Host  string
}

// ParseOrigin decomposes the line prefix into nick, login and host.
func ParseOrigin(prefix string) Origin {
	nuh, err := ircmsg.ParseNUH(prefix)
	if err != nil {
		return Origin{Nick: prefix}
	}
	return Origin{Nick: nuh.Name, Login: nuh.User, Host: nuh.Host}
}
