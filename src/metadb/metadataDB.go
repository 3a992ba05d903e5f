/*
Copyright (c) YugabyteDB, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package metadb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/yugabyte/yb-ddbio/src/utils"
)

var (
	JOBS_TABLE_NAME = "jobs"
)

const SQLITE_OPTIONS = "?_txlock=exclusive&_timeout=30000"

// DefaultPath is used when no history-db is configured.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".yb-ddbio", "history.db")
}

func CreateAndInitMetaDBIfRequired(path string) error {
	if utils.FileOrFolderExists(path) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("not able to create meta db dir :%w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("not able to create meta db file :%w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("error while closing meta db file: %w", err)
	}
	return initMetaDB(path)
}

func initMetaDB(path string) error {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("%s%s", path, SQLITE_OPTIONS))
	if err != nil {
		return fmt.Errorf("error while opening meta db :%w", err)
	}
	defer conn.Close()
	cmds := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			arn TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT,
			table_arn TEXT,
			s3_uri TEXT,
			item_count INTEGER DEFAULT 0,
			start_time INTEGER,
			updated_at INTEGER,
			json_text TEXT);`, JOBS_TABLE_NAME),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_kind_idx ON %s (kind, updated_at);`, JOBS_TABLE_NAME, JOBS_TABLE_NAME),
	}
	for _, cmd := range cmds {
		_, err = conn.Exec(cmd)
		if err != nil {
			return fmt.Errorf("error while initializating meta db with query-%s :%w", cmd, err)
		}
		log.Infof("Executed query on meta db - %s", cmd)
	}
	return nil
}

// =====================================================================================================================

type MetaDB struct {
	db *sql.DB
}

// NewMetaDB opens the job history at path, creating it on first use.
func NewMetaDB(path string) (*MetaDB, error) {
	if err := CreateAndInitMetaDBIfRequired(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s%s", path, SQLITE_OPTIONS))
	if err != nil {
		return nil, fmt.Errorf("error while opening meta db :%w", err)
	}
	return &MetaDB{db: db}, nil
}

func (m *MetaDB) Close() error {
	return m.db.Close()
}

// JobRecord is one export or import as last seen by this tool. Details
// holds the full snapshot as JSON.
type JobRecord struct {
	Arn       string
	Kind      string
	Status    string
	TableArn  string
	S3URI     string
	ItemCount int64
	StartTime time.Time
	UpdatedAt time.Time
	Details   json.RawMessage
}

// RecordJob inserts or replaces the record for rec.Arn. details is
// marshalled into the json_text column.
func (m *MetaDB) RecordJob(rec JobRecord, details any) error {
	jsonText, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("error while marshalling json: %w", err)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	query := fmt.Sprintf(`INSERT INTO %s (arn, kind, status, table_arn, s3_uri, item_count, start_time, updated_at, json_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(arn) DO UPDATE SET
			status = excluded.status,
			table_arn = excluded.table_arn,
			s3_uri = excluded.s3_uri,
			item_count = excluded.item_count,
			start_time = excluded.start_time,
			updated_at = excluded.updated_at,
			json_text = excluded.json_text`, JOBS_TABLE_NAME)
	_, err = m.db.Exec(query, rec.Arn, rec.Kind, rec.Status, rec.TableArn, rec.S3URI, rec.ItemCount,
		unixMilli(rec.StartTime), unixMilli(rec.UpdatedAt), string(jsonText))
	if err != nil {
		return fmt.Errorf("error while running query on meta db - %s :%w", query, err)
	}
	log.Infof("recorded %s job %s with status %s", rec.Kind, rec.Arn, rec.Status)
	return nil
}

func (m *MetaDB) GetJob(arn string) (*JobRecord, bool, error) {
	query := fmt.Sprintf(`SELECT arn, kind, status, table_arn, s3_uri, item_count, start_time, updated_at, json_text
		FROM %s WHERE arn = ?`, JOBS_TABLE_NAME)
	rec, err := scanJob(m.db.QueryRow(query, arn))
	if err != nil {
		if err == sql.ErrNoRows {
			log.Infof("No job found for arn: %s", arn)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error while running query on meta db - %s :%w", query, err)
	}
	return rec, true, nil
}

// ListJobs returns the recorded jobs of the given kind, most recently
// updated first. An empty kind lists all jobs.
func (m *MetaDB) ListJobs(kind string) ([]*JobRecord, error) {
	query := fmt.Sprintf(`SELECT arn, kind, status, table_arn, s3_uri, item_count, start_time, updated_at, json_text
		FROM %s WHERE (? = '' OR kind = ?) ORDER BY updated_at DESC, arn`, JOBS_TABLE_NAME)
	rows, err := m.db.Query(query, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("error while running query on meta db - %s :%w", query, err)
	}
	defer rows.Close()
	var recs []*JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("error while scanning rows from meta db: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error while iterating rows from meta db: %w", err)
	}
	return recs, nil
}

func (m *MetaDB) DeleteJob(arn string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE arn = ?`, JOBS_TABLE_NAME)
	_, err := m.db.Exec(query, arn)
	if err != nil {
		return fmt.Errorf("error while running query on meta db -%s :%w", query, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*JobRecord, error) {
	var rec JobRecord
	var tableArn, s3URI, status, jsonText sql.NullString
	var startTime, updatedAt sql.NullInt64
	err := row.Scan(&rec.Arn, &rec.Kind, &status, &tableArn, &s3URI, &rec.ItemCount, &startTime, &updatedAt, &jsonText)
	if err != nil {
		return nil, err
	}
	rec.Status = status.String
	rec.TableArn = tableArn.String
	rec.S3URI = s3URI.String
	rec.StartTime = fromUnixMilli(startTime)
	rec.UpdatedAt = fromUnixMilli(updatedAt)
	if jsonText.Valid {
		rec.Details = json.RawMessage(jsonText.String)
	}
	return &rec, nil
}

func unixMilli(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func fromUnixMilli(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}
