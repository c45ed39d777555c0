package update

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/femon07/codex-skill-updater/pkg/backup"
	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/diff"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// Function variables for testing - allows mocking filesystem steps.
var (
	snapshotFunc = func(store *backup.Store, timestamp, name, installed string) (backup.Generation, error) {
		return store.Snapshot(timestamp, name, installed)
	}
	replaceTreeFunc = backup.ReplaceTree
	restoreTreeFunc = func(store *backup.Store, gen backup.Generation, installed string) error {
		return store.Restore(gen, installed)
	}
	hashDirFunc = diff.HashDir
	compareFunc = diff.Compare
)

// applyChanged runs the snapshot, replace and verify steps for one Changed
// package.
//
// It performs the following operations:
//   - Step 1: Snapshot the live tree into the run's generation
//   - Step 2: Replace the live tree with the staged tree
//   - Step 3: Verify the installed hash equals the staged hash and SKILL.md exists
//   - Step 4: On failure in 2 or 3, restore the snapshot
//
// Parameters:
//   - actx: run parameters with the backup store
//   - rec: package record with StagingPath and InstalledPath
//   - timestamp: run timestamp naming the generation
//
// Returns:
//   - Outcome: Applied, Failed, RolledBack or RollbackFailed
func applyChanged(actx *ApplyContext, rec PackageRecord, timestamp string) Outcome {
	log := verbose.Logger("apply")
	out := Outcome{Name: rec.Name, Strategy: rec.Strategy, DiffResult: rec.DiffResult}

	gen, err := snapshotFunc(actx.Backups, timestamp, rec.Name, rec.InstalledPath)
	if err != nil {
		out.Outcome = constants.OutcomeFailed
		out.Reason = constants.ReasonSnapshotFailed
		out.Err = &errors.ApplyError{Package: rec.Name, Step: "backup", Err: err}
		log.Warn().Str("package", rec.Name).Err(err).Msg("backup failed; installed content untouched")
		return out
	}
	out.BackupPath = gen.Path
	log.Debug().Str("package", rec.Name).Str("backup", gen.Path).Msg("snapshot taken")

	if err := replaceTreeFunc(rec.StagingPath, rec.InstalledPath); err != nil {
		return rollbackOnFailure(actx, rec, gen, out, &errors.ApplyError{Package: rec.Name, Step: "replace", Err: err}, constants.ReasonReplaceFailed)
	}

	if err := verifyInstalled(rec); err != nil {
		return rollbackOnFailure(actx, rec, gen, out, &errors.ApplyError{Package: rec.Name, Step: "verify", Err: err}, constants.ReasonVerifyFailed)
	}

	out.Outcome = constants.OutcomeApplied
	log.Info().Str("package", rec.Name).Str("backup", gen.Path).Msg("applied")
	return out
}

// verifyInstalled checks the installed tree matches the staged tree.
func verifyInstalled(rec PackageRecord) error {
	staged, err := hashDirFunc(rec.StagingPath)
	if err != nil {
		return fmt.Errorf("hash staged content: %w", err)
	}
	installed, err := hashDirFunc(rec.InstalledPath)
	if err != nil {
		return fmt.Errorf("hash installed content: %w", err)
	}
	if staged != installed {
		return fmt.Errorf("installed content hash %s does not match staged %s", installed, staged)
	}
	info, err := os.Stat(filepath.Join(rec.InstalledPath, constants.SkillManifest))
	if err != nil {
		return fmt.Errorf("installed content has no %s: %w", constants.SkillManifest, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("installed %s is not a regular file", constants.SkillManifest)
	}
	return nil
}
