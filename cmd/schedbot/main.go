package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	yaml "go.yaml.in/yaml/v3"

	"schedbot/internal/eventbus"
	"schedbot/internal/runner"
	"schedbot/internal/schedule"
	logx "schedbot/pkg/logx"
)

func main() {
	var (
		channelsPath string
		logLevel     string
		logFile      string
	)
	flag.StringVar(&channelsPath, "channels", "./channels.yaml", "path to channel mapping yaml")
	flag.StringVar(&logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	flag.StringVar(&logFile, "log-file", "", "optional JSON log file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logSvc, log := logx.New(logx.Config{
		Level:   logLevel,
		Console: true,
		File:    logx.FileConfig{Enabled: logFile != "", Path: logFile},
	})
	defer logSvc.Close()

	mappings, err := loadMappings(channelsPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	store := schedule.NewStore(log)
	bus := eventbus.New()

	// Debug tap on the lifecycle events; an embedding bot replaces this with
	// its own subscribers (dashboards, chat notifications).
	events, unsub := bus.Subscribe(64)
	defer unsub()
	go func() {
		for e := range events {
			log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
		}
	}()

	// Standalone binary: no delivery adapter wired, executions are logged.
	// The embedding bot injects its own Executor here.
	exec := runner.ExecutorFunc(func(ctx context.Context, task, channelID, threadID string) error {
		log.Info("task executed",
			logx.String("channel", channelID), logx.String("thread", threadID), logx.String("task", task))
		return nil
	})

	run := runner.New(runner.Config{}, store, exec, bus, log)
	run.Start(ctx, mappings)
	defer run.Stop()

	<-ctx.Done()
}

func loadMappings(path string) ([]schedule.ChannelMapping, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read channel mappings: %w", err)
	}
	var out struct {
		Channels []schedule.ChannelMapping `yaml:"channels"`
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parse channel mappings: %w", err)
	}
	return out.Channels, nil
}
