package sqlite

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tokens (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	access_token  TEXT NOT NULL,
	refresh_token TEXT NOT NULL,
	expires_at    DATETIME NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
