// Package console reads line commands from an input stream and runs them
// against a server: inspecting who is online, broadcasting messages and
// shutting the server down.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/basalt-mc/basalt/server"
	"github.com/basalt-mc/basalt/server/protocol"
)

// Console reads commands from an io.Reader, defaulting to os.Stdin, and
// executes them on the provided server.
type Console struct {
	srv    *server.Server
	log    *slog.Logger
	reader io.Reader
}

// New returns a Console bound to the provided server. The console reads
// from os.Stdin and writes command output to the supplied logger.
func New(srv *server.Server, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		srv:    srv,
		log:    log,
		reader: os.Stdin,
	}
}

// WithReader sets a custom reader for the console input. It enables testing
// the console without relying on os.Stdin.
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// Run starts consuming commands from the console. It blocks until the
// context is cancelled, the underlying reader reaches EOF or a stop command
// shuts the server down.
func (c *Console) Run(ctx context.Context) {
	scanner := bufio.NewScanner(c.reader)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				c.log.Error("Console input failed.", "err", err)
			}
			return
		}
		line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "/"))
		if line == "" {
			continue
		}
		if !c.execute(line) {
			return
		}
	}
}

// execute runs a single command line and reports whether the console should
// keep reading.
func (c *Console) execute(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(name) {
	case "help":
		c.log.Info("Commands: help, list, tps, say <message>, whitelist <add|remove|list|on|off> [player], stop.")
	case "whitelist":
		c.whitelist(arg)
	case "list":
		names := c.srv.PlayerNames()
		c.log.Info(fmt.Sprintf("There are %v players online.", len(names)), "players", strings.Join(names, ", "))
	case "tps":
		c.log.Info(fmt.Sprintf("Current TPS: %.1f.", c.srv.TPS()))
	case "say":
		if strings.TrimSpace(arg) == "" {
			c.log.Error("Usage: say <message>.")
			break
		}
		msg := "[Server] " + arg
		c.srv.Exec(func() {
			c.srv.World().Broadcast(&protocol.SystemChat{Content: protocol.JSONText(msg)})
		})
		c.log.Info(msg)
	case "stop":
		if err := c.srv.Close(); err != nil {
			c.log.Error("Failed to stop the server.", "err", err)
		}
		return false
	default:
		c.log.Error(fmt.Sprintf("Unknown command %q. Try help.", name))
	}
	return true
}

// whitelist edits the server's whitelist. The subcommands report on the
// console only; they do not kick players that are already online.
func (c *Console) whitelist(arg string) {
	wl, ok := c.srv.Allower().(*server.Whitelist)
	if !ok {
		c.log.Error("The server does not run with a whitelist.")
		return
	}
	sub, name, _ := strings.Cut(arg, " ")
	switch strings.ToLower(sub) {
	case "add":
		added, err := wl.Add(name)
		switch {
		case err != nil:
			c.log.Error("Failed to edit the whitelist.", "err", err)
		case added:
			c.log.Info(fmt.Sprintf("Added %v to the whitelist.", strings.TrimSpace(name)))
		default:
			c.log.Info(fmt.Sprintf("%v was already whitelisted.", strings.TrimSpace(name)))
		}
	case "remove":
		removed, err := wl.Remove(name)
		switch {
		case err != nil:
			c.log.Error("Failed to edit the whitelist.", "err", err)
		case removed:
			c.log.Info(fmt.Sprintf("Removed %v from the whitelist.", strings.TrimSpace(name)))
		default:
			c.log.Info(fmt.Sprintf("%v was not whitelisted.", strings.TrimSpace(name)))
		}
	case "list":
		names := wl.Players()
		c.log.Info(fmt.Sprintf("There are %v whitelisted players.", len(names)), "players", strings.Join(names, ", "))
	case "on":
		wl.SetEnabled(true)
		c.log.Info("Whitelist enabled.")
	case "off":
		wl.SetEnabled(false)
		c.log.Info("Whitelist disabled.")
	default:
		c.log.Error("Usage: whitelist <add|remove|list|on|off> [player].")
	}
}
