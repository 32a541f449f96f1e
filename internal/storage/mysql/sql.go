package mysql

const listLocationCodesSQL = `SELECT alias, code FROM location_codes`

const upsertLocationCodesPrefix = "INSERT INTO location_codes (alias, code) VALUES "

const upsertLocationCodesOnDup = `
ON DUPLICATE KEY UPDATE
  code       = VALUES(code),
  updated_at = CURRENT_TIMESTAMP
`

const insertRunSQL = `
INSERT INTO search_runs
  (id, destination, check_in, check_out, adults, kids, budget, listings)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
`

const insertOutcomesPrefix = "INSERT INTO search_outcomes (run_id, provider, outcome, listings, elapsed_ms) VALUES "

// DATE columns come back as text regardless of parseTime.
const recentRunsSQL = `
SELECT id, destination,
       DATE_FORMAT(check_in, '%Y-%m-%d'), DATE_FORMAT(check_out, '%Y-%m-%d'),
       adults, kids, budget, listings, created_at
FROM search_runs
ORDER BY created_at DESC, id DESC
LIMIT ?
`

const outcomesForRunsPrefix = `
SELECT run_id, provider, outcome, listings, elapsed_ms
FROM search_outcomes
WHERE run_id IN `
