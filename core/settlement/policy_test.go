package settlement

import (
	"testing"
	"time"

	"github.com/funnelseye/backoffice/tests"
)

func TestPolicyFromConfig(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Settlement.Currency = "usd"
	conf.Settlement.CommissionTableBps = map[string]int64{"Gold": 1000, "SILVER": 500}

	policy := PolicyFromConfig(conf)

	if policy.Currency != "USD" {
		t.Errorf("Currency = %q; want USD", policy.Currency)
	}
	if bps, ok := policy.CommissionBpsFor("gold"); !ok || bps != 1000 {
		t.Errorf("CommissionBpsFor(gold) = %d, %v; want 1000, true", bps, ok)
	}
	if bps, ok := policy.CommissionBpsFor("SILVER"); !ok || bps != 500 {
		t.Errorf("CommissionBpsFor(SILVER) = %d, %v; want 500, true", bps, ok)
	}
	if _, ok := policy.CommissionBpsFor("diamond"); ok {
		t.Error("CommissionBpsFor(diamond) found an unconfigured rank")
	}

	// a live config edit must not leak into the snapshot
	conf.Settlement.CommissionTableBps["gold"] = 9999
	if bps, _ := policy.CommissionBpsFor("gold"); bps != 1000 {
		t.Errorf("snapshot mutated: CommissionBpsFor(gold) = %d; want 1000", bps)
	}
}

func TestFinancialPolicy_Validate(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name    string
		mutate  func(p *FinancialPolicy)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(*FinancialPolicy) {}},
		{name: "fee bps above 10000", mutate: func(p *FinancialPolicy) { p.PlatformFeeBps = 10001 }, wantErr: true},
		{name: "negative tax bps", mutate: func(p *FinancialPolicy) { p.TaxRateBps = -1 }, wantErr: true},
		{name: "commission bps above 10000", mutate: func(p *FinancialPolicy) { p.CommissionTableBps["gold"] = 20000 }, wantErr: true},
		{name: "unknown frequency", mutate: func(p *FinancialPolicy) { p.PayoutFrequency = "daily" }, wantErr: true},
		{name: "zero max levels", mutate: func(p *FinancialPolicy) { p.MaxCommissionLevels = 0 }, wantErr: true},
		{name: "zero fan out", mutate: func(p *FinancialPolicy) { p.PayoutFanOut = 0 }, wantErr: true},
		{name: "bad currency code", mutate: func(p *FinancialPolicy) { p.Currency = "US" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := testPolicy()
			tt.mutate(&policy)
			err := policy.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2026-07")
	if err != nil {
		t.Fatalf("ParsePeriod() failed: %v", err)
	}
	if p != "2026-07" {
		t.Errorf("ParsePeriod() = %q; want 2026-07", p)
	}

	wantStart := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if !p.Start().Equal(wantStart) {
		t.Errorf("Start() = %s; want %s", p.Start(), wantStart)
	}
	if !p.End().Equal(wantEnd) {
		t.Errorf("End() = %s; want %s", p.End(), wantEnd)
	}

	// December rolls into the next year
	dec, _ := ParsePeriod("2026-12")
	if want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC); !dec.End().Equal(want) {
		t.Errorf("End() = %s; want %s", dec.End(), want)
	}

	for _, bad := range []string{"2026-13", "2026", "07-2026", "junk", ""} {
		if _, err := ParsePeriod(bad); err == nil {
			t.Errorf("ParsePeriod(%q) did not fail", bad)
		}
	}
}

func TestItemState_Terminal(t *testing.T) {
	terminal := map[ItemState]bool{
		StatePending:     false,
		StateSubmitted:   false,
		StateFailed:      false,
		StateCompleted:   true,
		StateFailedFinal: true,
	}
	for state, want := range terminal {
		if got := state.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v; want %v", state, got, want)
		}
	}
}
