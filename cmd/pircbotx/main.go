package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cnaude/PircBotX/internal/config"
	"github.com/cnaude/PircBotX/internal/event"
	"github.com/cnaude/PircBotX/internal/irc"
	"github.com/lmittmann/tint"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("c", "./config.yaml", "Path to configuration file")
	debug := flag.Bool("d", false, "Enable debug logging")
	showVersion := flag.Bool("v", false, "Show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pircbotx version %s\n", version)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	// Set version info in irc package
	irc.Version = version
	irc.BuildDate = buildDate
	irc.GitCommit = gitCommit

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *debug || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	client := irc.NewClient(cfg, event.DispatcherFunc(logEvent), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		client.Quit("Received shutdown signal")
		cancel()
	}()

	logger.Info("connecting", "server", cfg.Server, "port", cfg.Port, "tls", cfg.UseTLS)
	if err := client.Connect(); err != nil {
		logger.Error("failed to connect", "err", err)
		os.Exit(1)
	}

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("connection ended", "err", err)
		os.Exit(1)
	}
}

// logEvent is a minimal listener manager: it prints every notification the
// engine dispatches. Real deployments swap in their own Dispatcher.
func logEvent(e event.Event) {
	switch ev := e.(type) {
	case event.Message:
		slog.Info("message", "channel", ev.Channel.Name, "nick", ev.User.Nick, "text", ev.Text)
	case event.PrivateMessage:
		slog.Info("private message", "nick", ev.User.Nick, "text", ev.Text)
	case event.Notice:
		target := ""
		if ev.Channel != nil {
			target = ev.Channel.Name
		}
		slog.Info("notice", "channel", target, "nick", ev.User.Nick, "text", ev.Text)
	case event.Join:
		slog.Info("join", "channel", ev.Channel.Name, "nick", ev.User.Nick)
	case event.Part:
		slog.Info("part", "channel", ev.Channel.Name, "nick", ev.User.Nick, "reason", ev.Reason)
	case event.Kick:
		slog.Info("kick", "channel", ev.Channel.Name, "nick", ev.Recipient.Nick, "by", ev.Source.Nick, "reason", ev.Reason)
	case event.Quit:
		slog.Info("quit", "nick", ev.User.Nick, "reason", ev.Reason)
	case event.NickChange:
		slog.Info("nick change", "old", ev.OldNick, "new", ev.NewNick)
	case event.Invite:
		slog.Info("invite", "nick", ev.User, "channel", ev.Channel)
	case event.Topic:
		slog.Info("topic", "channel", ev.Channel.Name, "topic", ev.Text, "setter", ev.Setter, "changed", ev.Changed)
	case event.Mode:
		slog.Info("mode", "channel", ev.Channel.Name, "mode", ev.Mode, "by", ev.User.Nick)
	case event.UserList:
		slog.Info("who result", "channel", ev.Channel.Name, "users", len(ev.Users))
	case event.ChannelList:
		slog.Info("list result", "channels", len(ev.Entries))
	case event.ServerResponse:
		slog.Debug("server response", "code", ev.Code, "line", ev.Raw)
	case event.Unknown:
		slog.Debug("unclassified line", "line", ev.Raw)
	default:
		slog.Debug("event", "type", fmt.Sprintf("%T", e))
	}
}
