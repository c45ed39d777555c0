package ledger

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    run_timestamp TEXT NOT NULL,
    command TEXT NOT NULL,
    dry_run BOOLEAN NOT NULL,
    total INTEGER NOT NULL,
    applied INTEGER NOT NULL,
    failures INTEGER NOT NULL,
    rollback_failed INTEGER NOT NULL,
    exit_code INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_packages (
    run_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    strategy TEXT NOT NULL,
    diff_result TEXT NOT NULL,
    outcome TEXT NOT NULL,
    reason TEXT,
    backup_path TEXT,
    error TEXT,
    PRIMARY KEY (run_id, name),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_run_packages_name ON run_packages(name);
`
