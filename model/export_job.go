package model

import "time"

// ExportJob records one export request and the files it produced. The
// manifest is stored as JSON so the history endpoint can replay what a
// download contained without keeping the bytes around.
type ExportJob struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	JobID        string    `json:"jobId" gorm:"size:36;uniqueIndex"`
	FileID       string    `json:"fileId" gorm:"size:36;index"`
	SourceName   string    `json:"sourceName" gorm:"size:255"`
	BusCount     int       `json:"busCount"`
	ClipCount    int       `json:"clipCount"`
	ManifestJSON string    `json:"manifest" gorm:"type:text"`
	ArchivePath  string    `json:"archivePath,omitempty" gorm:"size:512"` // object key when archived to MinIO
	CreatedAt    time.Time `json:"createdAt"`
}
