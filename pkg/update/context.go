package update

import (
	"time"

	"github.com/femon07/codex-skill-updater/pkg/backup"
)

// ApplyContext carries the parameters of one apply run.
type ApplyContext struct {
	// Backups is the generation store under the fixed backup root.
	Backups *backup.Store

	// DryRun stages and compares but never snapshots or writes.
	DryRun bool

	// FailFast skips every package after the first failure.
	FailFast bool

	// Keep is the number of generations retained per touched package.
	Keep int

	// Now stamps the run; nil uses time.Now.
	Now func() time.Time
}

// NewApplyContext creates an ApplyContext with default retention.
func NewApplyContext(backups *backup.Store) *ApplyContext {
	return &ApplyContext{
		Backups: backups,
		Keep:    backup.DefaultKeep,
	}
}

// WithFlags sets the execution flags and returns the context for chaining.
func (ctx *ApplyContext) WithFlags(dryRun, failFast bool) *ApplyContext {
	ctx.DryRun = dryRun
	ctx.FailFast = failFast
	return ctx
}

// WithClock sets the run clock and returns the context for chaining.
func (ctx *ApplyContext) WithClock(now func() time.Time) *ApplyContext {
	ctx.Now = now
	return ctx
}

func (ctx *ApplyContext) now() time.Time {
	if ctx.Now != nil {
		return ctx.Now()
	}
	return time.Now()
}
