package constants

// Layout of the managed home ($CODEX_HOME).
const (
	// DefaultCodexDir is the managed home directory name under the user's home.
	DefaultCodexDir = ".codex"

	// SkillsDir holds installed skills.
	SkillsDir = "skills"

	// DistDir holds locally staged .skill archives, relative to SkillsDir.
	DistDir = "dist"

	// SystemNamespace is the reserved installer namespace, relative to SkillsDir.
	SystemNamespace = ".system"

	// BackupDir is the fixed backup root, relative to the managed home.
	BackupDir = "skill-backups"

	// SkillManifest must exist in every installed or staged skill directory.
	SkillManifest = "SKILL.md"

	// SkillMetaFile records the upstream source of an installed skill.
	SkillMetaFile = ".skill-meta.json"

	// ArchiveExt is the extension of locally staged archives.
	ArchiveExt = ".skill"
)

// Debug artifact filenames. They are fixed so tooling can locate them without
// scanning a directory.
const (
	DebugCheckFile  = "skill_update_check.debug.tsv"
	DebugReportFile = "skill_update_apply_report.debug.json"
)

// Source map filenames.
const (
	SourceMapFile      = "skills_source_map.json"
	SourceMapLocalFile = "skills_source_map.local.json"
)

// Concurrency bounds for the probe phase.
const (
	DefaultJobs = 4
	MaxJobs     = 8
)

// DefaultRef is used when a source descriptor has no ref.
const DefaultRef = "main"

// BackupTimestampFormat names backup generations. It sorts lexically in time order.
const BackupTimestampFormat = "20060102-150405.000"
