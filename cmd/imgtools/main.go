package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/mano8/imgtools-m8/config"
	"github.com/mano8/imgtools-m8/logging"
	"github.com/mano8/imgtools-m8/pipeline"
)

var version = "dev"

// Options are the command line flags. Flags override the corresponding
// configuration file values.
type Options struct {
	Config  string `short:"c" long:"config" description:"Configuration file path" env:"IMGTOOLS_CONFIG"`
	Source  string `short:"s" long:"source" description:"Source image file or directory (overrides config)"`
	Output  string `short:"o" long:"output" description:"Output directory (overrides config)"`
	Jobs    int    `short:"j" long:"jobs" description:"Parallel workers (overrides config)"`
	Report  string `long:"report" description:"Write a JSON run report to this path"`
	LogFile string `long:"log-file" description:"Also log to this file"`
	Verbose bool   `short:"v" long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Print version and exit"`
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	parser.Name = "imgtools"
	parser.Usage = "-c [--config] <config-path> [-s source] [-o output]"
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			return 0
		}
		return 1
	}

	if opts.Version {
		fmt.Println("imgtools", version)
		return 0
	}

	logCfg := logging.DefaultConfig()
	if opts.Verbose {
		logCfg.Level = "debug"
	}
	if opts.LogFile != "" {
		logCfg.File = opts.LogFile
	}
	logging.Init(logCfg)
	defer logging.Sync()
	log := logging.Named("imgtools")

	proc, err := loadProcess(opts)
	if err != nil {
		log.WithError(err).Error("invalid configuration")
		return 1
	}

	engine, err := pipeline.NewEngine(proc)
	if err != nil {
		log.WithError(err).Error("cannot start")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := engine.Run(ctx)
	if opts.Report != "" && report != nil {
		if werr := report.WriteJSON(opts.Report); werr != nil {
			log.WithError(werr).Warn("cannot write report")
		}
	}
	if err != nil {
		log.WithError(err).Error("run aborted")
		return 1
	}

	// Per-source failures leave the batch partially done; report them and
	// finish normally.
	summary := report.Summary()
	if summary.HasErrors() {
		for _, file := range summary.Files() {
			log.Warn("source failed",
				zap.String("source", file),
				zap.String("type", string(summary.Get(file).Type)),
				zap.String("error", summary.Get(file).Error()))
		}
	}
	return 0
}

// loadProcess binds the process configuration and applies flag overrides.
func loadProcess(opts *Options) (config.Process, error) {
	var proc config.Process

	cfgOpts := config.DefaultOptions()
	if opts.Config != "" {
		cfgOpts.Path = opts.Config
	}
	cfg, err := config.New(cfgOpts)
	if err != nil {
		return proc, err
	}
	if err := cfg.BindWithDefaults(&proc); err != nil {
		return proc, err
	}

	if opts.Source != "" {
		proc.SourcePath = opts.Source
	}
	if opts.Output != "" {
		proc.OutputPath = opts.Output
	}
	if opts.Jobs > 0 {
		proc.Jobs = opts.Jobs
	}
	return proc, nil
}
