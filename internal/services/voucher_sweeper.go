package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// VoucherSweeper periodically flags expired vouchers
type VoucherSweeper struct {
	ledger *LedgerService
	cron   *cron.Cron
}

// NewVoucherSweeper schedules ExpireVouchers on the given cron spec ("@hourly", "*/15 * * * *", ...)
func NewVoucherSweeper(ledger *LedgerService, spec string) (*VoucherSweeper, error) {
	if spec == "" {
		spec = "@hourly"
	}
	s := &VoucherSweeper{ledger: ledger, cron: cron.New()}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid voucher sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *VoucherSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.ledger.ExpireVouchers(ctx); err != nil {
		slog.Error("Voucher sweep failed", "error", err)
	}
}

// Start runs one sweep immediately, then follows the schedule
func (s *VoucherSweeper) Start() {
	s.sweep()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *VoucherSweeper) Stop() {
	<-s.cron.Stop().Done()
}
