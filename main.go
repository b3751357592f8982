package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/basalt-mc/basalt/server"
	"github.com/basalt-mc/basalt/server/console"
	"github.com/pelletier/go-toml"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
	log := slog.Default()

	conf, err := readConfig(log)
	if err != nil {
		log.Error("Failed to read config.", "err", err)
		os.Exit(1)
	}

	srv := conf.New()
	srv.CloseOnProgramEnd()
	if err := srv.Listen(); err != nil {
		log.Error("Failed to start the server.", "err", err)
		os.Exit(1)
	}

	go console.New(srv, log).Run(context.Background())
	srv.Wait()
}

// readConfig reads the configuration from the config.toml file, or creates
// the file with default values if it does not yet exist.
func readConfig(log *slog.Logger) (server.Config, error) {
	c := server.DefaultConfig()
	if _, err := os.Stat("config.toml"); os.IsNotExist(err) {
		data, err := toml.Marshal(c)
		if err != nil {
			return server.Config{}, fmt.Errorf("encode default config: %v", err)
		}
		if err := os.WriteFile("config.toml", data, 0644); err != nil {
			return server.Config{}, fmt.Errorf("create default config: %v", err)
		}
		return c.Config(log)
	}
	data, err := os.ReadFile("config.toml")
	if err != nil {
		return server.Config{}, fmt.Errorf("read config: %v", err)
	}
	if err := toml.Unmarshal(data, &c); err != nil {
		return server.Config{}, fmt.Errorf("decode config: %v", err)
	}
	return c.Config(log)
}
