// Command urtpstream runs the URTP audio streaming endpoint: capture,
// gain, codec, datagram ring, and sender, brought up and retried by a
// supervisor, per spec.md. Entry point shape grounded on the teacher's
// cmd/client/main.go: parse a config file flag, load config, configure
// logging, construct and run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/RobMeades/urtpstream/internal/codec"
	"github.com/RobMeades/urtpstream/internal/config"
	"github.com/RobMeades/urtpstream/internal/eventlog"
	"github.com/RobMeades/urtpstream/internal/indicator"
	"github.com/RobMeades/urtpstream/internal/supervisor"
	"github.com/RobMeades/urtpstream/internal/urtp"
)

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	flag.Parse()

	cfg, err := config.Load(*configFilePath)
	if err != nil {
		slog.Error("error loading config", "err", err)
		os.Exit(1)
	}

	logFilePointer, err := config.ConfigureLogger(cfg)
	if err != nil {
		slog.Error("error configuring logger", "err", err)
		os.Exit(1)
	}
	if logFilePointer != nil {
		defer logFilePointer.Close()
	}

	// --------------------------------------------------------------------------------

	coding, err := urtp.ParseCoding(cfg.Coding)
	if err != nil {
		slog.Error("invalid coding", "err", err)
		os.Exit(1)
	}
	if coding != urtp.CodingPCM16 {
		if err := codec.CheckArithmeticShift(); err != nil {
			slog.Error("platform precondition failed for UNICAM coding", "err", err)
			os.Exit(1)
		}
	}

	// --------------------------------------------------------------------------------

	log := eventlog.New(5000)
	ind := indicator.New(slog.Default())
	sup := supervisor.New(cfg, slog.Default(), log, ind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("urtpstream starting",
		"transport", cfg.Transport,
		"coding", cfg.Coding,
		"server", fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
	)

	if err := sup.Run(ctx); err != nil {
		slog.Error("supervisor exited with error", "err", err)
	}

	log.Print(func(line string) { fmt.Println(line) })
}
