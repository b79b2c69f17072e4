package mysql

// room_locks holds one row per room; WithRoomLock takes that row FOR UPDATE,
// which is what serializes all check-then-write paths for the room.
const ensureRoomLockSQL = `INSERT IGNORE INTO room_locks (room_id) VALUES (?)`

const takeRoomLockSQL = `SELECT room_id FROM room_locks WHERE room_id = ? FOR UPDATE`

const insertEntrySQL = `
INSERT INTO ledger_entries
  (id, room_id, beds, check_in, check_out, origin, status, female_only,
   guest_label, guest_count, platform, external_id, expires_at, pricing,
   created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateEntrySQL = `
UPDATE ledger_entries SET
  beds        = ?,
  check_in    = ?,
  check_out   = ?,
  status      = ?,
  female_only = ?,
  guest_label = ?,
  guest_count = ?,
  platform    = ?,
  external_id = ?,
  expires_at  = ?,
  updated_at  = ?
WHERE id = ?
`

// Conditional transitions: the WHERE guard is what makes confirm/release
// race-safe against the sweep and against each other.
const updateStatusSQL = `
UPDATE ledger_entries SET status = ?, updated_at = ?
WHERE id = ? AND status = ?
`

const updateHoldStatusSQL = `
UPDATE ledger_entries SET status = ?, updated_at = ?
WHERE id = ? AND status = ? AND expires_at > ?
`

const expireDueSQL = `
UPDATE ledger_entries SET status = 'expired', updated_at = ?
WHERE status = 'hold' AND expires_at <= ?
`

const entryColumns = `
  id, room_id, beds, check_in, check_out, origin, status, female_only,
  guest_label, guest_count, platform, external_id, expires_at, pricing,
  created_at, updated_at`

const getEntrySQL = `SELECT` + entryColumns + `
FROM ledger_entries WHERE id = ?`

// Half-open overlap test; expiry of live holds is the caller's concern.
const listOverlappingSQL = `SELECT` + entryColumns + `
FROM ledger_entries
WHERE room_id = ?
  AND status IN ('hold','confirmed')
  AND check_in < ?
  AND check_out > ?
ORDER BY check_in, id`

const findByExternalSQL = `SELECT` + entryColumns + `
FROM ledger_entries
WHERE room_id = ? AND platform = ? AND external_id = ?
LIMIT 1`

const listActiveFeedsSQL = `
SELECT id, room_id, platform, url, is_active, last_synced_at, last_error
FROM calendar_feeds
WHERE is_active = 1
ORDER BY id`

const upsertFeedSQL = `
INSERT INTO calendar_feeds (id, room_id, platform, url, is_active)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  room_id   = VALUES(room_id),
  platform  = VALUES(platform),
  url       = VALUES(url),
  is_active = VALUES(is_active)
`

const markFeedSyncedSQL = `
UPDATE calendar_feeds SET last_synced_at = ?, last_error = ?
WHERE id = ?
`
