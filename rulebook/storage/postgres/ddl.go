package postgres

const ddlBase = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT
);

CREATE TABLE IF NOT EXISTS rules (
  id            TEXT PRIMARY KEY,
  label         TEXT NOT NULL DEFAULT '',
  mapping_id    TEXT NOT NULL,
  mapping_label TEXT NOT NULL DEFAULT '',
  position      BIGINT NOT NULL,
  expressions   TEXT NOT NULL,
  created_at    BIGINT NOT NULL,
  updated_at    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position, id);
CREATE INDEX IF NOT EXISTS idx_rules_mapping  ON rules(mapping_id, position);
`
