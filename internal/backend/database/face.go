package database

type FaceDetails struct {
	Name   string `json:"name"`
	Age    string `json:"age"`
	Number string `json:"number"`
	Email  string `json:"email"`
}

type FaceRecord struct {
	ID        int64       `db:"id" json:"id"`
	ImageName string      `db:"image_name" json:"imageName"`
	Details   FaceDetails `json:"details"`
	Embedding []float64   `db:"face_embedding" json:"-"` // stored as raw float64 BLOB
}
