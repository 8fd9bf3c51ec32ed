package irc

import (
	"github.com/ergochat/irc-go/ircmsg"
)

// Outbound protocol directives. Writes are fire-and-forget handoffs to the
// transport; nothing here waits for a reply.

// Send formats and writes one command with its parameters.
func (c *Client) Send(command string, params ...string) {
	msg := ircmsg.MakeMessage(nil, "", command, params...)
	line, err := msg.LineBytes()
	if err != nil {
		c.log.Warn("dropping unsendable message", "command", command, "err", err)
		return
	}
	c.write(line)
}

// SendRaw writes one already-formatted line.
func (c *Client) SendRaw(line string) {
	c.write(append([]byte(line), '\r', '\n'))
}

func (c *Client) write(line []byte) {
	if c.conn == nil {
		return
	}
	c.writeM.Lock()
	defer c.writeM.Unlock()
	if _, err := c.conn.Write(line); err != nil {
		c.log.Warn("write failed", "err", err)
	}
}

// JoinChannel asks the server to join a channel.
func (c *Client) JoinChannel(channel string) {
	c.Send("JOIN", channel)
}

// Part leaves a channel.
func (c *Client) Part(channel string) {
	c.Send("PART", channel)
}

// Privmsg sends a message to a channel or nick.
func (c *Client) Privmsg(target, text string) {
	c.Send("PRIVMSG", target, text)
}

// Notice sends a notice to a channel or nick.
func (c *Client) Notice(target, text string) {
	c.Send("NOTICE", target, text)
}

// SetNick requests a nick change.
func (c *Client) SetNick(nick string) {
	c.Send("NICK", nick)
}

// Who asks for a WHO listing; the answer arrives as a single UserList
// event once the server terminates the reply.
func (c *Client) Who(target string) {
	c.Send("WHO", target)
}

// List asks for the channel list; the answer arrives as a single
// ChannelList event.
func (c *Client) List() {
	c.Send("LIST")
}

// Quit announces departure and closes the connection.
func (c *Client) Quit(message string) {
	c.Send("QUIT", message)
	if c.conn != nil {
		c.conn.Close()
	}
}
