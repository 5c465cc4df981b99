package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/funnelseye/backoffice/core/settlement"
)

// preview prints the payout plan for a period as indented JSON. With diffFile
// set, it prints a unified diff against a previously saved plan instead, so a
// pending config or hierarchy change can be reviewed before executing.
func (cli *commandLine) preview(periodStr, diffFile string) error {
	period, err := settlement.ParsePeriod(periodStr)
	if err != nil {
		return err
	}

	plan, err := cli.stlSvc.PreviewRun(context.Background(), period)
	if err != nil {
		return err
	}

	current, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	current = append(current, '\n')

	if diffFile == "" {
		fmt.Print(string(current))
		return nil
	}

	saved, err := ioutil.ReadFile(diffFile)
	if err != nil {
		return err
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(saved)),
		B:        difflib.SplitLines(string(current)),
		FromFile: diffFile,
		ToFile:   "current plan",
		Context:  3,
	})
	if err != nil {
		return err
	}
	if diff == "" {
		fmt.Println("Plan unchanged.")
	} else {
		fmt.Print(diff)
	}
	return nil
}
