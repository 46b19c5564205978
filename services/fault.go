package services

import (
	"os"

	"go.uber.org/zap"
)

// FaultPolicy decides what happens after a fault outside any request
// handler: it is always logged, and in production the process exits.
type FaultPolicy struct {
	log   *zap.SugaredLogger
	fatal bool
	exit  func(code int)
}

func NewFaultPolicy(log *zap.SugaredLogger, production bool) *FaultPolicy {
	return &FaultPolicy{log: log, fatal: production, exit: os.Exit}
}

// Handle logs err and terminates the process when the policy is fatal.
func (p *FaultPolicy) Handle(err error) {
	p.log.Errorw("Uncaught fault", "error", err, "fatal", p.fatal)
	if p.fatal {
		_ = p.log.Sync()
		p.exit(1)
	}
}
