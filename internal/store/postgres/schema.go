package postgres

// Schema creates the tables used by Store. Statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id               TEXT PRIMARY KEY,
	seq              BIGSERIAL,
	creator          TEXT NOT NULL,
	start_time       TIMESTAMPTZ NOT NULL,
	duration_seconds BIGINT NOT NULL,
	end_time         TIMESTAMPTZ NOT NULL,
	uri              TEXT NOT NULL,
	active           BOOLEAN NOT NULL,
	winning_meme_id  BIGINT NOT NULL DEFAULT 0,
	token_ref        TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS memes (
	event_id    TEXT NOT NULL REFERENCES events (id),
	id          BIGINT NOT NULL,
	name        TEXT NOT NULL,
	content_ref TEXT NOT NULL,
	description TEXT NOT NULL,
	creator     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	upvotes     BIGINT NOT NULL DEFAULT 0,
	downvotes   BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (event_id, id)
);

CREATE TABLE IF NOT EXISTS balances (
	event_id   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	amount     BIGINT NOT NULL CHECK (amount >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (event_id, user_id)
);

CREATE TABLE IF NOT EXISTS votes (
	event_id   TEXT NOT NULL,
	meme_id    BIGINT NOT NULL,
	voter      TEXT NOT NULL,
	direction  TEXT NOT NULL CHECK (direction IN ('up', 'down')),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (event_id, meme_id, voter)
);
`
