package db

// DCSO HOSTNAMER
// Copyright (c) 2017, 2021, DCSO GmbH

// DefaultTableName is the name of the table resolutions are archived in.
const DefaultTableName = "resolutions"

// SQLCreate is an SQL/DDL clause to create the resolution table
const SQLCreate = `CREATE TABLE IF NOT EXISTS "%s"
  (ts timestamp with time zone default now(),
   address inet not null,
   name text not null);
GRANT ALL PRIVILEGES ON TABLE "%s" to %s;`

// SQLIndex is an SQL/DDL clause to create indexes on the resolution table
const SQLIndex = `CREATE INDEX IF NOT EXISTS "%s_address_idx" ON "%s" (address);
CREATE INDEX IF NOT EXISTS "%s_name_idx" ON "%s" (name);
CREATE INDEX IF NOT EXISTS "%s_ts_idx" ON "%s" (ts);`

// SQLCopy is an SQL/DDL clause to bulk insert a chunk of resolutions into
// the database
const SQLCopy = `COPY "%s" (ts, address, name) FROM STDIN WITH CSV DELIMITER E'\t' QUOTE E'\b'`

// SQLExpire is an SQL clause to remove resolutions older than the given
// number of seconds
const SQLExpire = `DELETE FROM "%s" WHERE ts < now() - interval '%d seconds';`

// SQLPing is a trivial query used to check whether the database is ready.
const SQLPing = `SELECT 1;`
