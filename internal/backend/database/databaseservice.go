package database

import "database/sql"

type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// InsertFace appends a new record. It returns ErrDuplicateImage if a record
	// with the same image name already exists.
	InsertFace(record *FaceRecord) error
	// FindFaceByEmbedding scans all records in storage order and returns the details
	// of the first one whose embedding is exactly equal to the given vector.
	// ErrNotFound is returned when nothing matches.
	FindFaceByEmbedding(embedding []float64) (*FaceDetails, error)
	GetFaceByImageName(imageName string) (*FaceDetails, error)
	GetAllFaces() ([]*FaceRecord, error)
}
