package store

// Schema v1 - Initial catalog schema
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Artists, identified globally by their normalized name
CREATE TABLE IF NOT EXISTS artists (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  prefix TEXT NOT NULL DEFAULT '',
  normname TEXT NOT NULL UNIQUE,
  various INTEGER NOT NULL DEFAULT 0,
  time_added DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Albums, identified by normalized name within their owning artist
CREATE TABLE IF NOT EXISTS albums (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  artist_id INTEGER NOT NULL REFERENCES artists(id),
  name TEXT NOT NULL,
  normname TEXT NOT NULL,
  year INTEGER NOT NULL DEFAULT 0,
  live INTEGER NOT NULL DEFAULT 0,
  miscellaneous INTEGER NOT NULL DEFAULT 0,
  art_filename TEXT NOT NULL DEFAULT '',
  art_mime TEXT NOT NULL DEFAULT '',
  art_ext TEXT NOT NULL DEFAULT '',
  art_mtime INTEGER NOT NULL DEFAULT 0,
  time_added DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (artist_id, normname)
);

CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id);

-- Songs; filename is the library-relative path and the id survives moves
CREATE TABLE IF NOT EXISTS songs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  filename TEXT NOT NULL UNIQUE,
  album_id INTEGER NOT NULL REFERENCES albums(id),
  artist_id INTEGER NOT NULL REFERENCES artists(id),
  group_id INTEGER REFERENCES artists(id),
  conductor_id INTEGER REFERENCES artists(id),
  composer_id INTEGER REFERENCES artists(id),
  title TEXT NOT NULL,
  normtitle TEXT NOT NULL,
  tracknum INTEGER NOT NULL DEFAULT 0,
  year INTEGER NOT NULL DEFAULT 0,
  length INTEGER NOT NULL DEFAULT 0,
  bitrate INTEGER NOT NULL DEFAULT 0,
  mode TEXT NOT NULL DEFAULT '',
  filetype TEXT NOT NULL DEFAULT '',
  size INTEGER NOT NULL DEFAULT 0,
  sha256sum TEXT NOT NULL,
  time_added DATETIME DEFAULT CURRENT_TIMESTAMP,
  time_updated INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_songs_album ON songs(album_id);
CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist_id);
CREATE INDEX IF NOT EXISTS idx_songs_sha256 ON songs(sha256sum);

-- Cached album art thumbnails, one row per (album, size class)
CREATE TABLE IF NOT EXISTS album_art (
  album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
  size TEXT NOT NULL,
  resolution INTEGER NOT NULL,
  from_mtime INTEGER NOT NULL,
  image BLOB NOT NULL,
  PRIMARY KEY (album_id, size)
);
`
