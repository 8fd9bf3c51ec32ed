package caps

import (
	"encoding/base64"
	"strings"
)

// SASL negotiates the "sasl" capability and authenticates with the PLAIN
// mechanism. With IgnoreFail set, authentication failures retire the
// handler quietly instead of aborting the handshake.
type SASL struct {
	Username   string
	Password   string
	IgnoreFail bool
}

// NewSASL returns a handler that treats authentication failure as fatal.
func NewSASL(username, password string) *SASL {
	return &SASL{Username: username, Password: password}
}

// OnList requests "sasl" if the server offers it.
func (s *SASL) OnList(n *Negotiator, capabilities []string) (bool, error) {
	if !contains(capabilities, "sasl") {
		return false, &Error{Reason: ReasonUnsupportedCapability, Message: "SASL"}
	}
	n.Request("sasl")
	return false, nil
}

// OnAck starts the PLAIN exchange once the server acknowledges "sasl".
func (s *SASL) OnAck(n *Negotiator, capabilities []string) (bool, error) {
	if contains(capabilities, "sasl") {
		n.SendRaw("AUTHENTICATE PLAIN")
	}
	// still waiting for the server's challenge
	return false, nil
}

// OnNak fails the handshake if the server refused "sasl".
func (s *SASL) OnNak(n *Negotiator, capabilities []string) (bool, error) {
	if !s.IgnoreFail && contains(capabilities, "sasl") {
		n.Disable("sasl")
		return false, &Error{Reason: ReasonUnsupportedCapability, Message: "SASL"}
	}
	return false, nil
}

// OnUnknown answers the AUTHENTICATE challenge and watches for the SASL
// result numerics: 900/903 succeed, 904/905 fail.
func (s *SASL) OnUnknown(n *Negotiator, rawLine string) (bool, error) {
	if strings.Replace(rawLine, "AUTHENTICATE :+", "AUTHENTICATE +", 1) == "AUTHENTICATE +" {
		payload := base64.StdEncoding.EncodeToString([]byte(s.Username + "\x00" + s.Username + "\x00" + s.Password))
		n.SendRaw("AUTHENTICATE " + payload)
		return false, nil
	}

	fields := strings.SplitN(rawLine, " ", 4)
	if len(fields) < 2 {
		return false, nil
	}
	switch fields[1] {
	case "904", "905":
		n.Disable("sasl")
		if s.IgnoreFail {
			return true, nil
		}
		return false, &Error{Reason: ReasonSASLFailed, Message: "SASL authentication failed with message: " + trailing(fields)}
	case "900", "903":
		return true, nil
	}
	return false, nil
}

func contains(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}

func trailing(fields []string) string {
	if len(fields) < 4 {
		return ""
	}
	return strings.TrimPrefix(fields[3], ":")
}
