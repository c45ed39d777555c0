package update

import (
	"github.com/femon07/codex-skill-updater/pkg/backup"
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// rollbackOnFailure restores a package from its snapshot after an apply
// failure.
//
// When the restore succeeds the outcome is RolledBack with applyErr. When it
// fails the outcome is RollbackFailed and Err is a *errors.RollbackError;
// installed state for the package is then unknown.
func rollbackOnFailure(actx *ApplyContext, rec PackageRecord, gen backup.Generation, out Outcome, applyErr *errors.ApplyError, reason string) Outcome {
	log := verbose.Logger("apply")
	out.Reason = reason

	if err := restoreTreeFunc(actx.Backups, gen, rec.InstalledPath); err != nil {
		out.Outcome = constants.OutcomeRollbackFailed
		out.Err = &errors.RollbackError{
			Package:    rec.Name,
			BackupPath: gen.Path,
			ApplyErr:   applyErr,
			Err:        err,
		}
		log.Error().Str("package", rec.Name).Str("backup", gen.Path).Err(err).Msg("rollback failed; manual intervention required")
		return out
	}

	out.Outcome = constants.OutcomeRolledBack
	out.Err = applyErr
	log.Warn().Str("package", rec.Name).Err(applyErr).Msg("rolled back")
	return out
}
