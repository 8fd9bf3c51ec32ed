package irc

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/cnaude/PircBotX/internal/caps"
	"github.com/cnaude/PircBotX/internal/event"
	"github.com/cnaude/PircBotX/internal/state"
)

type eventLog struct {
	events []event.Event
}

func (l *eventLog) Dispatch(e event.Event) {
	l.events = append(l.events, e)
}

// last returns the most recent event of type E, like the original listener
// harness: dispatch everything, fish out what the test cares about.
func last[E event.Event](t *testing.T, l *eventLog) (E, bool) {
	t.Helper()
	var found E
	ok := false
	for _, e := range l.events {
		if ev, is := e.(E); is {
			found = ev
			ok = true
		}
	}
	return found, ok
}

func mustLast[E event.Event](t *testing.T, l *eventLog) E {
	t.Helper()
	ev, ok := last[E](t, l)
	if !ok {
		t.Fatalf("no %T dispatched; got %#v", ev, l.events)
	}
	return ev
}

func newTestEngine(handlers ...caps.Handler) (*Engine, *eventLog, *[]string) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var sent []string
	neg := caps.NewNegotiator(func(line string) { sent = append(sent, line) }, logger, handlers...)
	neg.Start()
	events := &eventLog{}
	e := NewEngine(state.NewRepository(logger), events, neg, logger)
	return e, events, &sent
}

func TestJoinCreatesAndLinks(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host JOIN :#aChannel")

	repo := e.Repository()
	u := repo.GetUser("AUser")
	c := repo.GetChannel("#aChannel")
	if u == nil || c == nil {
		t.Fatal("JOIN did not create entities")
	}
	if u.Login != "~ALogin" || u.Hostmask != "some.host" {
		t.Errorf("origin mask not applied: login=%q host=%q", u.Login, u.Hostmask)
	}
	if !u.InChannel("#aChannel") || !c.HasMember("AUser") {
		t.Error("membership edge missing")
	}

	jev := mustLast[event.Join](t, events)
	if jev.User != u || jev.Channel != c {
		t.Error("Join event does not carry the repository entities")
	}
}

func TestPartRemovesAndPurges(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host JOIN :#aChannel")
	e.HandleLine(":AUser!~ALogin@some.host PART #aChannel :bye now")

	pev := mustLast[event.Part](t, events)
	if pev.Reason != "bye now" {
		t.Errorf("reason = %q", pev.Reason)
	}
	repo := e.Repository()
	if repo.GetChannel("#aChannel").HasMember("AUser") {
		t.Error("roster still lists user after part")
	}
	if repo.UserExists("AUser") {
		t.Error("user with zero memberships not purged")
	}
}

func TestPartKeepsUserWithOtherChannels(t *testing.T) {
	e, _, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host JOIN :#aChannel")
	e.HandleLine(":AUser!~ALogin@some.host JOIN :#bChannel")
	e.HandleLine(":AUser!~ALogin@some.host PART #aChannel")

	if !e.Repository().UserExists("AUser") {
		t.Error("user purged while still joined elsewhere")
	}
}

func TestPartUnknownUserDropped(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":Ghost!~g@h PART #nowhere")
	if _, ok := last[event.Part](t, events); ok {
		t.Error("Part event for unknown entity")
	}
}

func TestKickForgetsRecipient(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host JOIN :#aChannel")
	e.HandleLine(":OtherUser!~OtherLogin@some.host1 JOIN :#aChannel")
	e.HandleLine(":AUser!~ALogin@some.host MODE #aChannel +o OtherUser")
	before := e.Repository().GetUser("OtherUser")

	e.HandleLine(":AUser!~ALogin@some.host KICK #aChannel OtherUser :begone")

	kev := mustLast[event.Kick](t, events)
	if kev.Source.Nick != "AUser" || kev.Recipient != before || kev.Reason != "begone" {
		t.Errorf("kick payload wrong: %#v", kev)
	}
	repo := e.Repository()
	c := repo.GetChannel("#aChannel")
	if c.IsOp("OtherUser") || c.HasVoice("OtherUser") {
		t.Error("roles survive kick")
	}
	if repo.UserExists("OtherUser") {
		t.Error("kicked-from-all user still registered")
	}
	if repo.GetOrCreateUser("OtherUser") == before {
		t.Error("recreated user shares identity with kicked user")
	}
}

func TestQuitSnapshotAndPurge(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":OtherUser!~OtherLogin@some.host1 JOIN :#aChannel")
	e.HandleLine(":AUser!~ALogin@some.host JOIN :#aChannel")
	e.HandleLine(":AUser!~ALogin@some.host MODE #aChannel +o OtherUser")
	e.HandleLine(":AUser!~ALogin@some.host MODE #aChannel +v OtherUser")
	before := e.Repository().GetUser("OtherUser")

	e.HandleLine(":OtherUser!~OtherLogin@some.host1 QUIT :gone fishing")

	qev := mustLast[event.Quit](t, events)
	if qev.User.Nick != "OtherUser" || qev.User.Login != "~OtherLogin" || qev.User.Hostmask != "some.host1" {
		t.Errorf("snapshot fields wrong: %#v", qev.User)
	}
	if qev.Reason != "gone fishing" {
		t.Errorf("reason = %q", qev.Reason)
	}
	repo := e.Repository()
	if repo.UserExists("OtherUser") {
		t.Error("user still registered after quit")
	}
	c := repo.GetChannel("#aChannel")
	if c.HasMember("OtherUser") || c.IsOp("OtherUser") || c.HasVoice("OtherUser") {
		t.Error("channel still associated with user that quit")
	}
	if repo.GetOrCreateUser("OtherUser") == before {
		t.Error("recreated user shares identity with quit user")
	}
}

func TestQuitEmptyReason(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":OtherUser!~OtherLogin@some.host1 JOIN :#aChannel")
	e.HandleLine(":OtherUser!~OtherLogin@some.host1 QUIT :")

	qev := mustLast[event.Quit](t, events)
	if qev.Reason != "" {
		t.Errorf("reason = %q, want empty", qev.Reason)
	}
}

func TestNickChangeKeepsIdentity(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host JOIN :#aChannel")
	e.HandleLine(":OtherUser!~o@h JOIN :#aChannel")
	e.HandleLine(":AUser!~ALogin@some.host MODE #aChannel +o AUser")
	before := e.Repository().GetUser("AUser")

	e.HandleLine(":AUser!~ALogin@some.host NICK :BUser")

	nev := mustLast[event.NickChange](t, events)
	if nev.OldNick != "AUser" || nev.NewNick != "BUser" || nev.User != before {
		t.Errorf("nick change payload wrong: %#v", nev)
	}
	repo := e.Repository()
	if repo.UserExists("AUser") {
		t.Error("old nick still resolves")
	}
	if repo.GetUser("BUser") != before {
		t.Error("identity not preserved across rename")
	}
	if !repo.GetChannel("#aChannel").IsOp("BUser") {
		t.Error("role association lost across rename")
	}
}

func TestNickWithoutNicknameDropped(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host JOIN :#aChannel")
	before := e.Repository().GetUser("AUser")
	events.events = nil

	e.HandleLine(":AUser!~ALogin@some.host NICK")
	e.HandleLine(":AUser!~ALogin@some.host NICK :")

	if _, ok := last[event.NickChange](t, events); ok {
		t.Error("NickChange dispatched for an empty nickname")
	}
	repo := e.Repository()
	if repo.GetUser("AUser") != before {
		t.Error("user re-keyed by an empty nickname")
	}
	if repo.UserExists("") {
		t.Error("empty string registered as a nick")
	}
}

func TestInviteCreatesNothing(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host INVITE PircBotXUser :#aChannel")

	iev := mustLast[event.Invite](t, events)
	if iev.User != "AUser" || iev.Channel != "#aChannel" {
		t.Errorf("invite payload wrong: %#v", iev)
	}
	repo := e.Repository()
	if repo.ChannelExists("#aChannel") {
		t.Error("INVITE created the channel")
	}
	if repo.UserExists("AUser") {
		t.Error("INVITE created the inviting user")
	}
}

func TestChannelMessage(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host PRIVMSG #aChannel :hello everyone")

	mev := mustLast[event.Message](t, events)
	if mev.Channel.Name != "#aChannel" || mev.User.Nick != "AUser" || mev.Text != "hello everyone" {
		t.Errorf("message payload wrong: %#v", mev)
	}
}

func TestPrivateMessage(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host PRIVMSG PircBotXBot :psst")

	pev := mustLast[event.PrivateMessage](t, events)
	if pev.User.Nick != "AUser" || pev.Text != "psst" {
		t.Errorf("private message payload wrong: %#v", pev)
	}
	if _, ok := last[event.Message](t, events); ok {
		t.Error("channel Message dispatched for a private target")
	}
}

func TestNoticeChannelNilForPrivate(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":AUser!~ALogin@some.host NOTICE PircBotXBot :heads up")
	nev := mustLast[event.Notice](t, events)
	if nev.Channel != nil {
		t.Error("private notice carries a channel")
	}

	e.HandleLine(":AUser!~ALogin@some.host NOTICE #aChannel :heads up")
	nev = mustLast[event.Notice](t, events)
	if nev.Channel == nil || nev.Channel.Name != "#aChannel" {
		t.Error("channel notice missing its channel")
	}
}

func TestUnclassifiedLines(t *testing.T) {
	e, events, _ := newTestEngine()
	e.HandleLine(":irc.someserver.net 005 Me CHANTYPES=# :are supported")
	sev := mustLast[event.ServerResponse](t, events)
	if sev.Code != 5 {
		t.Errorf("code = %d", sev.Code)
	}

	e.HandleLine("PING :keepalive")
	uev := mustLast[event.Unknown](t, events)
	if uev.Raw != "PING :keepalive" {
		t.Errorf("raw = %q", uev.Raw)
	}
}

func TestMalformedLineIgnored(t *testing.T) {
	e, events, _ := newTestEngine()
	if err := e.HandleLine(":lonely.prefix"); err != nil {
		t.Fatalf("malformed line errored: %v", err)
	}
	if len(events.events) != 0 {
		t.Errorf("malformed line dispatched events: %#v", events.events)
	}
}

func TestSASLHandshakeThroughEngine(t *testing.T) {
	sasl := &caps.SASL{Username: "alice", Password: "secret"}
	e, _, sent := newTestEngine(sasl)

	steps := []string{
		":irc.someserver.net CAP * LS :multi-prefix sasl",
		":irc.someserver.net CAP * ACK :sasl",
		"AUTHENTICATE +",
		":irc.someserver.net 903 PircBotXBot :SASL authentication successful",
	}
	for _, line := range steps {
		if err := e.HandleLine(line); err != nil {
			t.Fatalf("HandleLine(%q) failed: %v", line, err)
		}
	}

	want := []string{"CAP LS", "CAP REQ :sasl", "AUTHENTICATE PLAIN", "AUTHENTICATE YWxpY2UAYWxpY2UAc2VjcmV0", "CAP END"}
	if len(*sent) != len(want) {
		t.Fatalf("sent %v, want %v", *sent, want)
	}
	for i := range want {
		if (*sent)[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, (*sent)[i], want[i])
		}
	}
}

func TestSASLFailureSurfacesFromEngine(t *testing.T) {
	sasl := &caps.SASL{Username: "alice", Password: "wrong"}
	e, _, sent := newTestEngine(sasl)

	e.HandleLine(":irc.someserver.net CAP * LS :sasl")
	e.HandleLine(":irc.someserver.net CAP * ACK :sasl")
	err := e.HandleLine(":irc.someserver.net 904 PircBotXBot :SASL authentication failed")

	var capErr *caps.Error
	if !errors.As(err, &capErr) || capErr.Reason != caps.ReasonSASLFailed {
		t.Fatalf("want SASLFailed from HandleLine, got %v", err)
	}
	if e.negotiator.Enabled("sasl") {
		t.Error("sasl still enabled after failure")
	}
	for _, line := range *sent {
		if line == "CAP END" {
			t.Errorf("CAP END sent despite the failure: %v", *sent)
		}
	}
}
