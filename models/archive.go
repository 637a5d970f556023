package models

import "time"

type ArchiveStatus string

const (
	ArchiveStatusBuilding ArchiveStatus = "building"
	ArchiveStatusClosed   ArchiveStatus = "closed"
	ArchiveStatusFailed   ArchiveStatus = "failed"
)

// ArchiveJob описывает сборку одного zip-архива.
type ArchiveJob struct {
	OutputPath string        `json:"output_path"`
	Entries    []string      `json:"entries"`
	Status     ArchiveStatus `json:"status"`
	SizeBytes  int64         `json:"size_bytes"`
	CreatedAt  time.Time     `json:"created_at"`
}
