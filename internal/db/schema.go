package db

// Transfer is one finished send or receive.
type Transfer struct {
	ID               uint   `gorm:"primaryKey"`
	SessionID        string `gorm:"uniqueIndex;not null"`
	Direction        string `gorm:"index"`
	FileName         string
	FilePath         string
	FileSize         uint64
	BytesTransferred uint64
	Checksum         string
	PeerToken        string
	RemoteAddr       string
	State            string `gorm:"index"`
	Error            string
	Warning          string
	StartedAt        int64
	FinishedAt       int64 `gorm:"index"`
}
