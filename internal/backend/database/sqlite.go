package database

import (
	"database/sql"
	"errors"
	"log/slog"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, wrapError("open", err)
	}
	// One handle for the whole process; this also keeps ":memory:" databases
	// from being split across pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, wrapError("open", err)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS faces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		image_name TEXT UNIQUE,
		name TEXT,
		age TEXT,
		number TEXT,
		email TEXT,
		face_embedding BLOB
	)`)
	if err != nil {
		return nil, wrapError("create table", err)
	}

	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// In SQLite, the database file is created when you connect to it.
	// So we can assume it exists if we can successfully ping the database.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) InsertFace(record *FaceRecord) error {
	_, err := s.db.Exec(`INSERT INTO faces (image_name, name, age, number, email, face_embedding)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.ImageName,
		record.Details.Name,
		record.Details.Age,
		record.Details.Number,
		record.Details.Email,
		EncodeEmbedding(record.Embedding),
	)
	if isUniqueViolation(err) {
		return ErrDuplicateImage
	}
	return wrapError("insert face", err)
}

func (s *SQLiteDatabase) FindFaceByEmbedding(embedding []float64) (*FaceDetails, error) {
	rows, err := s.db.Query(`SELECT id, COALESCE(name, ''), COALESCE(age, ''), COALESCE(number, ''), COALESCE(email, ''), face_embedding
		FROM faces ORDER BY id`)
	if err != nil {
		return nil, wrapError("find by embedding", err)
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning from the function
	}()

	for rows.Next() {
		var (
			id      int64
			details FaceDetails
			blob    []byte
		)
		if err := rows.Scan(&id, &details.Name, &details.Age, &details.Number, &details.Email, &blob); err != nil {
			return nil, wrapError("find by embedding", err)
		}

		stored, err := DecodeEmbedding(blob)
		if err != nil {
			// a vector that cannot be decoded cannot be equal to the query
			slog.Warn("FindFaceByEmbedding: skipping record with unreadable embedding", "id", id, "error", err)
			continue
		}
		if EmbeddingsEqual(embedding, stored) {
			return &details, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("find by embedding", err)
	}

	return nil, ErrNotFound
}

func (s *SQLiteDatabase) GetFaceByImageName(imageName string) (*FaceDetails, error) {
	row := s.db.QueryRow(`SELECT COALESCE(name, ''), COALESCE(age, ''), COALESCE(number, ''), COALESCE(email, '')
		FROM faces WHERE image_name = ?`, imageName)

	var details FaceDetails
	err := row.Scan(&details.Name, &details.Age, &details.Number, &details.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapError("get face by image name", err)
	}
	return &details, nil
}

func (s *SQLiteDatabase) GetAllFaces() ([]*FaceRecord, error) {
	rows, err := s.db.Query(`SELECT id, COALESCE(image_name, ''), COALESCE(name, ''), COALESCE(age, ''), COALESCE(number, ''), COALESCE(email, ''), face_embedding
		FROM faces ORDER BY id`)
	if err != nil {
		return nil, wrapError("get all faces", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*FaceRecord
	for rows.Next() {
		var (
			record FaceRecord
			blob   []byte
		)
		if err := rows.Scan(&record.ID, &record.ImageName, &record.Details.Name, &record.Details.Age,
			&record.Details.Number, &record.Details.Email, &blob); err != nil {
			return nil, wrapError("get all faces", err)
		}
		if record.Embedding, err = DecodeEmbedding(blob); err != nil {
			return nil, wrapError("get all faces", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("get all faces", err)
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
