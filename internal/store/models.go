package store

// Status is the persisted, lowercase form of the tagged DownloadStatus
// variant described in spec.md §3. The reason carried by Failed is not
// persisted in a separate column — it lives only in-memory on the
// supervisor's record — matching the documented limitation in spec.md §4.A
// and §9.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusPaused      Status = "paused"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// Download is the gorm model for the `downloads` table of spec.md §6.
type Download struct {
	ID             string `gorm:"primaryKey"`
	URL            string `gorm:"not null"`
	FilePath       string `gorm:"column:file_path;not null"`
	FileName       string `gorm:"column:file_name;not null"`
	TotalSize      *int64 `gorm:"column:total_size"`
	DownloadedSize int64  `gorm:"column:downloaded_size;not null;default:0"`
	Status         string `gorm:"not null"`
	Cookies        string
	Referrer       string
	UserAgent      string `gorm:"column:user_agent"`
	CreatedAt      int64  `gorm:"column:created_at;not null"`
	UpdatedAt      int64  `gorm:"column:updated_at;not null"`
}

func (Download) TableName() string { return "downloads" }

// Segment is the gorm model for the advisory `download_segments` table.
// Rows are written only through Store.SaveSegments; the supervisor does not
// write them during segmented downloads and does not consult them on
// restart. The model declares no foreign key to `downloads`, so the table
// has no ON DELETE CASCADE; Store.Delete removes a download's segment rows
// explicitly.
type Segment struct {
	DownloadID      string `gorm:"column:download_id;primaryKey"`
	SegmentIndex    int    `gorm:"column:segment_index;primaryKey"`
	StartByte       int64  `gorm:"column:start_byte;not null"`
	EndByte         int64  `gorm:"column:end_byte;not null"`
	DownloadedBytes int64  `gorm:"column:downloaded_bytes;not null;default:0"`
}

func (Segment) TableName() string { return "download_segments" }
