package main

import (
	"context"
	"fmt"

	"github.com/funnelseye/backoffice/core/settlement"
)

func (cli *commandLine) execute(periodStr string) error {
	period, err := settlement.ParsePeriod(periodStr)
	if err != nil {
		return err
	}

	summary, err := cli.stlSvc.ExecuteRun(context.Background(), period)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s for %s: %s\n", summary.RunID, summary.Period, summary.Status)
	fmt.Printf("  %d succeeded, %d failed, %d paid out (minor units)\n", summary.Succeeded, summary.Failed, summary.TotalPaid)
	for _, f := range summary.Failures {
		fmt.Printf("  coach %d: %s\n", f.CoachID, f.Reason)
	}
	return nil
}

func (cli *commandLine) sync() error {
	summary, err := cli.stlSvc.SyncPending(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Checked %d in-flight payout(s): %d completed, %d failed, %d still processing, %d errors\n",
		summary.Checked, summary.Completed, summary.Failed, summary.StillProcessing, summary.Errors)
	return nil
}

func (cli *commandLine) runs() error {
	runs, err := cli.stlSvc.QueryRuns(context.Background())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No settlement runs yet.")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("%s  %s  %s  %d succeeded  %d failed  %d paid\n",
			r.ID, r.Period, r.Status, r.Succeeded, r.Failed, r.TotalPaid)
	}
	return nil
}
