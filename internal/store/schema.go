package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS requests (
    timestamp                        TEXT PRIMARY KEY,
    email_address                    TEXT NOT NULL DEFAULT '',
    title_of_article                 TEXT NOT NULL DEFAULT '',
    amount_requested                 TEXT NOT NULL DEFAULT '0',
    corresponding_author_name        TEXT NOT NULL DEFAULT '',
    corresponding_author_orcid       TEXT NOT NULL DEFAULT '',
    collaborating_author_list        TEXT NOT NULL DEFAULT '',
    collaborating_author_orcid_list  TEXT NOT NULL DEFAULT '',
    title_of_journal                 TEXT NOT NULL DEFAULT '',
    journal_issn                     TEXT NOT NULL DEFAULT '',
    publisher                        TEXT NOT NULL DEFAULT '',
    article_status                   TEXT NOT NULL DEFAULT '',
    publication_type                 TEXT NOT NULL DEFAULT '',
    doi                              TEXT NOT NULL DEFAULT '',
    comment                          TEXT NOT NULL DEFAULT '',
    oa_fund_status                   TEXT NOT NULL DEFAULT 'submitted'
);

CREATE TABLE IF NOT EXISTS budget (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp            TEXT NOT NULL,
    total_amount         TEXT NOT NULL,
    change_amount        TEXT NOT NULL,
    reason               TEXT NOT NULL DEFAULT '',
    running_total        TEXT NOT NULL,
    running_total_change TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS urls (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp            TEXT NOT NULL,
    url                  TEXT NOT NULL,
    email                TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp            TEXT NOT NULL,
    filename             TEXT NOT NULL UNIQUE,
    original_filename    TEXT NOT NULL,
    email                TEXT NOT NULL,
    file_size            INTEGER NOT NULL,
    file_path            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS credentials (
    id                   TEXT PRIMARY KEY,
    pass_hashed          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(oa_fund_status);
CREATE INDEX IF NOT EXISTS idx_requests_email ON requests(email_address);
CREATE INDEX IF NOT EXISTS idx_budget_timestamp ON budget(timestamp);
CREATE INDEX IF NOT EXISTS idx_urls_timestamp ON urls(timestamp);
CREATE INDEX IF NOT EXISTS idx_files_timestamp ON files(timestamp);
CREATE INDEX IF NOT EXISTS idx_files_email ON files(email);
`
