/*
Package irc implements a client for the IRC protocol.

The Client type owns the connection and the read loop. It parses every
incoming line, keeps derived state current (known users, channel
membership, channel modes, server capabilities), and dispatches events
to registered handlers. Outbound methods build protocol-compliant lines
for you: long messages wrap within the line length limit, mode changes
batch within the server's advertised limits, and rich text is encoded
from a composable styled-text model.

A minimal bot:

	client := irc.NewClient()
	client.Register("greeter", irc.NewHandler().
		Bind(irc.EventReady, func(c *irc.Client, e *irc.Event) {
			c.Join("#go")
		}).
		Bind(irc.EventChannelMessage, func(c *irc.Client, e *irc.Event) {
			if irc.Strip(e.Text()) == "!hello" {
				c.MessageStyled(e.Target(), irc.Bold(irc.Plain("hello, "+e.From.Nick)))
			}
		}))

	if err := client.Connect("irc.example.org", 6697, true); err != nil {
		log.Fatal(err)
	}
	client.Identify("gobot", "gobot", "example bot", "")
	log.Fatal(client.Run())

# Events

Incoming lines dispatch under several kinds, from generic to specific.
Every line fires ServerEvent(command), where numerics are translated to
symbolic names ("welcome" for 001, "namreply" for 353). Messages and
notices additionally fire EventMessage/EventNotice and their channel or
private variants; CTCP exchanges fire both a generic and a per-verb
kind; lines about our own actions fire SelfEvent(command). Handlers are
invoked in registration order, and structural state is updated before
any handler runs, so a callback always observes the world after the
event it is being told about.

Callbacks run synchronously on the read loop unless bound with
BindAsync, which trades ordering guarantees for not stalling protocol
processing.

# Styled text

The Styled type models mIRC-formatted text as composition rather than
escape codes:

	irc.Bold(irc.Fg(irc.Red, irc.Plain("alert: ")), irc.Plain(reason))

Serialization, parsing, and outbound wrapping all preserve formatting
exactly; Strip removes it.
*/
package irc
