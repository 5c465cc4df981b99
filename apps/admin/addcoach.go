package main

import (
	"context"
	"fmt"

	"github.com/funnelseye/backoffice/core/coach"
)

// addCoach registers a coach.Coach
func (cli *commandLine) addCoach(name, email, rank string, sponsorID int) error {
	nc := coach.NewCoach{
		Name:      name,
		Email:     email,
		Rank:      rank,
		SponsorID: sponsorID,
	}
	if err := nc.Validate(cli.validate, cli.coachSvc); err != nil {
		return err
	}

	c, err := cli.coachSvc.Create(context.Background(), nc)
	if err != nil {
		return err
	}
	fmt.Printf("Coach %d created: %s <%s> rank=%s\n", c.ID, c.Name, c.Email, c.Rank)
	return nil
}
