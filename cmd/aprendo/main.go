package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/japaniel/aprendo/pkg/config"
	"github.com/japaniel/aprendo/pkg/logger"
)

func main() {
	configFlag := flag.String("config", "", "Path to YAML config (default $APRENDO_CONFIG or ./aprendo.yaml)")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := &app{
		cfg:    cfg,
		log:    logger.New(cfg.Log),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}

	command, args := flag.Arg(0), flag.Args()[1:]
	var runErr error
	switch command {
	case "etl":
		runErr = app.etl(args)
	case "build":
		runErr = app.build(ctx, args)
	case "list":
		runErr = app.list(args)
	case "lookup":
		runErr = app.lookup(args)
	case "quiz":
		runErr = app.quiz(args)
	case "stats":
		runErr = app.stats(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(2)
	}

	if runErr != nil {
		cancel()
		app.log.Fatal(command+" failed", "err", runErr)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: aprendo [-config file] <command> [flags]

Commands:
  etl     -in raw.csv [-out translations.csv]    normalize a raw export
  build   [-in translations.csv | -raw raw.csv] [-db aprendo.db]
                                                 build the store and write a snapshot
  list    [-db aprendo.db] [-direction es-bg]    print every link as id,source,target
  lookup  -word X [-from es|bg] [-db aprendo.db] print the translations of a word
  quiz    [-direction es-bg] [-ranges 1-10,20-30] [-seed n] [-db aprendo.db]
                                                 run an interactive quiz on stdin
  stats   [-db aprendo.db]                       print word and link counts

Without -db the store is loaded from the configured CSV file.`)
}
