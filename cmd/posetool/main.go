// posetool inspects MMD models and motions and evaluates skeleton poses.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/mmd-pose/internal/assets"
	"github.com/Faultbox/mmd-pose/internal/config"
	"github.com/Faultbox/mmd-pose/internal/logger"
)

// errUsage marks a command invoked with the wrong arguments.
var errUsage = errors.New("usage")

// env is the state shared by all commands.
type env struct {
	cfg    *config.Config
	assets *assets.Manager
	out    io.Writer
}

type command struct {
	name    string
	aliases []string
	usage   string
	run     func(e *env, args []string) error
}

var commands = []command{
	{"bones", []string{"b"}, "bones <model.pmd>", cmdBones},
	{"ik", nil, "ik <model.pmd>", cmdIK},
	{"motion", []string{"m"}, "motion <motion.vmd>", cmdMotion},
	{"pose", []string{"p"}, "pose [-frame N] [-bone name] <model.pmd> [motion.vmd]", cmdPose},
	{"export", nil, "export [-from N] [-to N] [-o poses.db] <model.pmd> <motion.vmd>", cmdExport},
	{"config", nil, "config [-o path]", cmdConfig},
}

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	logger.Sugar.Debugf("Config: %+v", cfg)

	code := run(cfg, flag.Args(), os.Stdout, os.Stderr)
	logger.Sync()
	os.Exit(code)
}

// run dispatches a command and returns the process exit code.
func run(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage(stdout)
		return 0
	}

	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(stderr, "Unknown command: %s\n", name)
		printUsage(stderr)
		return 1
	}

	e := &env{
		cfg:    cfg,
		assets: assets.NewManager(cfg.Data.SearchPaths...),
		out:    stdout,
	}
	defer e.assets.Close()

	if err := cmd.run(e, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Usage: posetool %s\n", cmd.usage)
			return 2
		}
		logger.Error("command failed", zap.String("command", cmd.name), zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
		for _, a := range c.aliases {
			if a == name {
				return c, true
			}
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `posetool - MMD skeleton and motion utility

Usage:
  posetool [global flags] <command> [options]

Global flags:
  -config path   Config file
  -data dirs     Comma-separated search directories for models and motions
  -debug         Debug logging
  -log file      Also log to a rotating file
  -fps N         Motion frames per second
  -noik          Disable IK solving

Commands:`)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\n", c.usage)
	}
	fmt.Fprintln(w, `
Examples:
  posetool bones miku.pmd
  posetool ik miku.pmd
  posetool pose -frame 120 miku.pmd dance.vmd
  posetool export -to 300 -o dance.db miku.pmd dance.vmd`)
}
