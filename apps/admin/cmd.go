package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/funnelseye/backoffice/core/coach"
	"github.com/funnelseye/backoffice/core/settlement"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db       *sql.DB
	stlSvc   *settlement.Service
	coachSvc *coach.Service
	validate *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [args] - manage database migrations (goose commands)")
	fmt.Println("  preview -period YYYY-MM [-diff FILE] - compute the payout plan without executing it")
	fmt.Println("  execute -period YYYY-MM -yes - execute a settlement run; money moves")
	fmt.Println("  sync - reconcile in-flight payouts against the gateway")
	fmt.Println("  runs - list past settlement runs")
	fmt.Println("  addcoach -name NAME -email EMAIL [-rank RANK] [-sponsor ID] - register a coach")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	previewCmd := flag.NewFlagSet("preview", flag.ExitOnError)
	previewPeriod := previewCmd.String("period", "", "The settlement period, YYYY-MM.")
	previewDiff := previewCmd.String("diff", "", "Diff the plan against a previously saved plan file.")

	executeCmd := flag.NewFlagSet("execute", flag.ExitOnError)
	executePeriod := executeCmd.String("period", "", "The settlement period, YYYY-MM.")
	executeYes := executeCmd.Bool("yes", false, "Confirm the run.")

	addCoachCmd := flag.NewFlagSet("addcoach", flag.ExitOnError)
	addCoachName := addCoachCmd.String("name", "", "The coach's full name.")
	addCoachEmail := addCoachCmd.String("email", "", "The coach's email address.")
	addCoachRank := addCoachCmd.String("rank", "", "One of bronze|silver|gold|platinum|diamond. Defaults to bronze.")
	addCoachSponsor := addCoachCmd.Int("sponsor", 0, "The sponsoring coach's ID. 0 = no sponsor.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "preview":
		if err := previewCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *previewPeriod == "" {
			previewCmd.Usage()
			return errHelp
		}
		return cli.preview(*previewPeriod, *previewDiff)
	case "execute":
		if err := executeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *executePeriod == "" {
			executeCmd.Usage()
			return errHelp
		}
		if !*executeYes {
			fmt.Println("Refusing to run without -yes; executing a run moves money.")
			return errHelp
		}
		return cli.execute(*executePeriod)
	case "sync":
		return cli.sync()
	case "runs":
		return cli.runs()
	case "addcoach":
		if err := addCoachCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCoachName == "" || *addCoachEmail == "" {
			addCoachCmd.Usage()
			return errHelp
		}
		return cli.addCoach(*addCoachName, *addCoachEmail, *addCoachRank, *addCoachSponsor)
	default:
		cli.printUsage()
		return errHelp
	}
}
