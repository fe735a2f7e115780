package store

const schema = `
CREATE TABLE IF NOT EXISTS scan_runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    archive_count INTEGER NOT NULL DEFAULT 0,
    built_count INTEGER NOT NULL DEFAULT 0,
    skipped_count INTEGER NOT NULL DEFAULT 0,
    failed_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS installed (
    package_name TEXT NOT NULL,
    version_code INTEGER NOT NULL,
    version_name TEXT,
    min_sdk INTEGER NOT NULL,
    target_sdk INTEGER NOT NULL,
    max_sdk INTEGER NOT NULL,
    permissions TEXT,
    features TEXT,
    native_code TEXT,
    signer TEXT,
    hash_type TEXT,
    hash TEXT,
    expansion_main TEXT,
    expansion_patch TEXT,
    archive_path TEXT NOT NULL,
    size_bytes INTEGER,
    scanned_at TIMESTAMP NOT NULL,
    warnings TEXT,
    scan_id TEXT,
    PRIMARY KEY (package_name, version_code)
);

CREATE INDEX IF NOT EXISTS idx_installed_archive ON installed(archive_path);
CREATE INDEX IF NOT EXISTS idx_installed_scan ON installed(scan_id);
CREATE INDEX IF NOT EXISTS idx_scan_runs_started ON scan_runs(started_at);
`
