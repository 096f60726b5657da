package entities

// Video represents the persisted state of one requested video.
//
// Status transitions are strictly forward: pending -> processing ->
// completed -> downloaded, with failed reachable from any non-terminal
// state. Timestamps are epoch milliseconds.
type Video struct {
	ID            string  `gorm:"type:varchar(64);primaryKey"`
	PromptID      *string `gorm:"type:varchar(64);index"`
	OperationName *string `gorm:"type:varchar(255)"`
	Status        string  `gorm:"type:varchar(16);not null;index"`
	SourceURL     *string `gorm:"type:text"`
	StorageKey    *string `gorm:"type:varchar(255)"`
	VideoURL      *string `gorm:"type:varchar(255)"`
	Error         *string `gorm:"type:text"`
	Duration      int     `gorm:"not null"`
	CreatedAt     int64   `gorm:"autoCreateTime:milli"`
	DownloadedAt  *int64
}

func (Video) TableName() string {
	return "videos"
}
