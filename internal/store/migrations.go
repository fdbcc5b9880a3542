package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id               INTEGER PRIMARY KEY,
	goal_id          INTEGER NOT NULL DEFAULT 0,
	title            TEXT NOT NULL,
	is_done          INTEGER NOT NULL DEFAULT 0,
	scheduled_date   TEXT NOT NULL DEFAULT '',
	has_time         INTEGER NOT NULL DEFAULT 0,
	scheduled_time   TEXT NOT NULL DEFAULT '',
	scheduled_day    TEXT NOT NULL DEFAULT '',
	duration_minutes INTEGER NOT NULL DEFAULT 15,
	reschedule_count INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS goals (
	id            INTEGER PRIMARY KEY,
	title         TEXT NOT NULL,
	color         TEXT NOT NULL DEFAULT '',
	category_type TEXT NOT NULL DEFAULT 'other',
	is_archived   INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_tasks_goal_id ON tasks(goal_id);
CREATE INDEX IF NOT EXISTS idx_tasks_scheduled_day ON tasks(scheduled_day);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cache_meta (
	scope      TEXT PRIMARY KEY,
	fetched_at INTEGER NOT NULL
);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
ALTER TABLE tasks ADD COLUMN stale INTEGER NOT NULL DEFAULT 0;

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
