// Command ircbot is a small example bot: it joins configured channels,
// answers a few chat commands, and stays connected through netsplits.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/time/rate"

	"github.com/quenot/irc"
)

type config struct {
	Server   string
	Port     int
	TLS      bool
	Nick     string
	Ident    string
	Realname string
	Password string
	Channels []string
}

func loadConfig(path string) (config, error) {
	cfg := config{
		Port:     6697,
		TLS:      true,
		Ident:    "ircbot",
		Realname: "example bot",
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Server == "" || cfg.Nick == "" {
		return cfg, fmt.Errorf("%s: server and nick are required", path)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "ircbot.toml", "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalln("config:", err)
	}

	client := irc.NewClient()
	client.ErrorLog = log.New(os.Stderr, "irc: ", log.LstdFlags)
	client.FloodLimit = rate.NewLimiter(rate.Every(2*time.Second), 5)
	client.SetReconnectPolicy(irc.FixedDelay(30 * time.Second))

	client.Register("bot", irc.NewHandler().
		Bind(irc.EventReady, func(c *irc.Client, e *irc.Event) {
			for _, channel := range cfg.Channels {
				c.Join(channel)
			}
		}).
		Bind(irc.EventChannelMessage, handleCommand).
		Bind(irc.CTCPRequestEvent("VERSION"), func(c *irc.Client, e *irc.Event) {
			c.CTCPReply(e.From.Nick, "VERSION", "ircbot")
		}).
		Bind(irc.CTCPRequestEvent("PING"), func(c *irc.Client, e *irc.Event) {
			c.CTCPReply(e.From.Nick, "PING", e.Text())
		}))

	if err := client.Connect(cfg.Server, cfg.Port, cfg.TLS); err != nil {
		log.Fatalln("connect:", err)
	}
	if err := client.Identify(cfg.Nick, cfg.Ident, cfg.Realname, cfg.Password); err != nil {
		log.Fatalln("identify:", err)
	}
	if err := client.Run(); err != nil {
		log.Fatalln("run:", err)
	}
}

func handleCommand(c *irc.Client, e *irc.Event) {
	fields := strings.Fields(irc.Strip(e.Text()))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "!") {
		return
	}

	switch fields[0] {
	case "!ping":
		c.MessageStyled(e.Target(), irc.Join(
			irc.Plain(e.From.Nick+": "),
			irc.Bold(irc.Plain("pong")),
		))

	case "!whois":
		if len(fields) < 2 {
			return
		}
		u := c.LookupUser(fields[1])
		if u == nil {
			c.Message(e.Target(), "never heard of them")
			return
		}
		c.MessageStyled(e.Target(), irc.Join(
			irc.Bold(irc.Plain(u.String())),
			irc.Plain(" on "+strings.Join(u.Channels(), " ")),
		))

	case "!bans":
		bans, err := c.BanListSync(e.Target(), 10*time.Second)
		if err != nil {
			c.Message(e.Target(), "ban list query failed: "+err.Error())
			return
		}
		c.MessageStyled(e.Target(), irc.Fg(irc.Red,
			irc.Plain(fmt.Sprintf("%d bans set", len(bans)))))
	}
}
