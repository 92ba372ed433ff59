package store

// Schema v1 - ledger tables and the digest view
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Files found in the pre-existing, immutable archive
CREATE TABLE IF NOT EXISTS legacy_archive_index (
  path TEXT PRIMARY KEY NOT NULL,
  modified_time INTEGER NOT NULL,
  size INTEGER NOT NULL,
  digest BLOB NOT NULL
);

-- Every source path ever copied (or deduplicated) into the new archive
CREATE TABLE IF NOT EXISTS transfer_ledger (
  path TEXT PRIMARY KEY NOT NULL,
  modified_time INTEGER NOT NULL,
  size INTEGER NOT NULL,
  digest BLOB NOT NULL
);

DROP VIEW IF EXISTS target_digests;
CREATE VIEW target_digests AS
      SELECT digest FROM legacy_archive_index
  UNION ALL
      SELECT digest FROM transfer_ledger;
`

// Schema v2 - digest lookup indexes
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_legacy_archive_index_digest ON legacy_archive_index(digest);
CREATE INDEX IF NOT EXISTS idx_transfer_ledger_digest ON transfer_ledger(digest);
`
