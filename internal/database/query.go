package database

import (
	"database/sql"
	"time"
)

const selectRemovals = `
	SELECT id, timestamp, file_type, file_id, action, path, code, message
	FROM removals
`

// GetRecentRemovals returns the N most recent removal requests
func (d *RemovalDB) GetRecentRemovals(limit int) ([]RemovalRecord, error) {
	return d.queryRemovals(selectRemovals+`ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
}

// GetRemovalsByType returns requests for one file type
func (d *RemovalDB) GetRemovalsByType(fileType string, limit int) ([]RemovalRecord, error) {
	return d.queryRemovals(selectRemovals+`WHERE file_type = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, fileType, limit)
}

// GetRemovalsByCode returns requests that ended with the given result code
func (d *RemovalDB) GetRemovalsByCode(code string, limit int) ([]RemovalRecord, error) {
	return d.queryRemovals(selectRemovals+`WHERE code = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, code, limit)
}

// GetRemovalCountByCode returns request counts grouped by result code
func (d *RemovalDB) GetRemovalCountByCode() (map[string]int, error) {
	rows, err := d.db.Query(`SELECT code, COUNT(*) FROM removals GROUP BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var count int
		if err := rows.Scan(&code, &count); err != nil {
			return nil, err
		}
		counts[code] = count
	}

	return counts, rows.Err()
}

// DeleteOldRecords removes records older than specified days
func (d *RemovalDB) DeleteOldRecords(olderThanDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)

	result, err := d.db.Exec(`DELETE FROM removals WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (d *RemovalDB) queryRemovals(query string, args ...interface{}) ([]RemovalRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RemovalRecord
	for rows.Next() {
		var r RemovalRecord
		var fileID, action, path, message sql.NullString

		if err := rows.Scan(&r.ID, &r.Timestamp, &r.FileType, &fileID, &action, &path, &r.Code, &message); err != nil {
			return nil, err
		}

		r.FileID = fileID.String
		r.Action = action.String
		r.Path = path.String
		r.Message = message.String
		records = append(records, r)
	}

	return records, rows.Err()
}
