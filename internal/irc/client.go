package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/cnaude/PircBotX/internal/caps"
	"github.com/cnaude/PircBotX/internal/config"
	"github.com/cnaude/PircBotX/internal/event"
	"github.com/cnaude/PircBotX/internal/state"
	"github.com/ergochat/irc-go/ircreader"
)

// Version information (set at build time or here)
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Client is the connection bootstrap around one Engine: it owns the socket,
// feeds inbound lines to the interpreter on a single goroutine, and hands
// outbound lines to the transport fire-and-forget. The engine itself never
// touches the network.
type Client struct {
	cfg    *config.Config
	engine *Engine
	neg    *caps.Negotiator
	events event.Dispatcher
	log    *slog.Logger

	conn   net.Conn
	writeM sync.Mutex
}

// NewClient builds a client and its interpreter from configuration. Every
// interpreted event is handed to dispatcher; the repository starts empty
// for each connection.
func NewClient(cfg *config.Config, dispatcher event.Dispatcher, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if dispatcher == nil {
		dispatcher = event.Discard
	}
	c := &Client{
		cfg:    cfg,
		events: dispatcher,
		log:    logger,
	}

	var handlers []caps.Handler
	if cfg.SASLUser != "" {
		handlers = append(handlers, &caps.SASL{
			Username:   cfg.SASLUser,
			Password:   cfg.SASLPass,
			IgnoreFail: cfg.SASLIgnoreFail,
		})
	}
	c.neg = caps.NewNegotiator(c.SendRaw, logger, handlers...)

	repo := state.NewRepository(logger)
	c.engine = NewEngine(repo, event.DispatcherFunc(c.onEvent), c.neg, logger)
	return c
}

// Engine exposes the line interpreter, mostly so callers can query the
// repository for current state.
func (c *Client) Engine() *Engine {
	return c.engine
}

// Negotiator exposes the capability handshake driver.
func (c *Client) Negotiator() *caps.Negotiator {
	return c.neg
}

// Connect dials the configured server.
func (c *Client) Connect() error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Server, c.cfg.Port)
	var (
		conn net.Conn
		err  error
	)
	if c.cfg.UseTLS {
		conn, err = tls.Dial("tcp", addr, &tls.Config{InsecureSkipVerify: c.cfg.TLSInsecure})
	} else {
		conn, err = net.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	c.conn = conn
	return nil
}

// Run registers with the server and processes inbound lines until the
// connection drops, the context is canceled, or capability negotiation
// fails hard. Cancellation is also the way out of a stalled handshake; the
// negotiator itself never times out.
func (c *Client) Run(ctx context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	stop := context.AfterFunc(ctx, func() {
		c.conn.Close()
	})
	defer stop()

	c.neg.Start()
	if c.cfg.ServerPass != "" {
		c.Send("PASS", c.cfg.ServerPass)
	}
	c.Send("NICK", c.cfg.Nick)
	c.Send("USER", c.cfg.Username, "8", "*", c.cfg.RealName)

	reader := ircreader.NewIRCReader(c.conn)
	for {
		lineBytes, err := reader.ReadLine()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("connection closed: %w", err)
		}
		if err := c.engine.HandleLine(string(lineBytes)); err != nil {
			// Negotiation failures are the only errors that influence
			// the connection lifecycle.
			c.log.Error("capability negotiation failed", "err", err)
			c.Quit("Negotiation failed")
			return err
		}
	}
}

// onEvent runs bootstrap policy before forwarding each event to the
// external dispatcher: PING answering and end-of-MOTD channel joins are
// connection plumbing, not interpretation.
func (c *Client) onEvent(e event.Event) {
	switch ev := e.(type) {
	case event.Unknown:
		if token, ok := strings.CutPrefix(ev.Raw, "PING"); ok {
			token = strings.TrimPrefix(strings.TrimSpace(token), ":")
			c.SendRaw("PONG :" + token)
		}
	case event.ServerResponse:
		// 376 end of MOTD, 422 no MOTD: connected either way
		if ev.Code == 376 || ev.Code == 422 {
			for _, channel := range c.cfg.Channels {
				c.JoinChannel(channel)
			}
		}
	}
	c.events.Dispatch(e)
}
