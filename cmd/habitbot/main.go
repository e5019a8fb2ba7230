package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"habitbot/internal/config"
)

var version = "dev"

var CLI struct {
	Version kong.VersionFlag
	Config  string   `help:"Config file (JSON or YAML)." type:"path" default:"./config.yaml" env:"HABITBOT_CONFIG"`
	EnvFile []string `help:"Dotenv files loaded before the config." name:"env-file" default:".env" sep:","`

	Run     RunCmd     `cmd:"" default:"1" help:"Run the bot and the reminder scheduler."`
	Remind  RemindCmd  `cmd:"" help:"Run one reminder firing and exit (for an external cron)."`
	Migrate MigrateCmd `cmd:"" help:"Create or update the database schema."`
	Check   CheckCmd   `cmd:"" help:"Validate the config file and check the database is reachable."`
}

// Globals is passed to every command's Run.
type Globals struct {
	Ctx  context.Context
	Cfgm *config.Manager
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("habitbot"),
		kong.Description("Habit tracker with Telegram reminders"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)

	if err := config.LoadDotEnv(CLI.EnvFile...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := kctx.Run(&Globals{Ctx: ctx, Cfgm: config.NewManager(CLI.Config)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
