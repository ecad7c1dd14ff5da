package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS chat_imports (
    id              UUID PRIMARY KEY,
    source_app      TEXT NOT NULL,
    file_path       TEXT NOT NULL DEFAULT '',
    format          TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    message_count   INTEGER NOT NULL DEFAULT 0,
    report          JSONB,
    failure         JSONB,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chat_messages (
    import_id         UUID NOT NULL REFERENCES chat_imports(id) ON DELETE CASCADE,
    seq               INTEGER NOT NULL,
    msg_id            TEXT NOT NULL,
    conversation_id   TEXT NOT NULL,
    sender            TEXT NOT NULL,
    sent_at           TIMESTAMPTZ NOT NULL,
    text              TEXT NOT NULL,
    message_type      TEXT NOT NULL,
    timestamp_derived BOOLEAN NOT NULL DEFAULT false,
    meta              JSONB,
    PRIMARY KEY (import_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_sent ON chat_messages(import_id, sent_at);
CREATE INDEX IF NOT EXISTS idx_chat_imports_status ON chat_imports(status);
`
