package models

import "io"

// FileLoaded carries the raw bytes of a file read from the remote store.
type FileLoaded struct {
	Filename string
	Content  []byte
}

// SaveFile asks for data to be written over FilePath.
type SaveFile struct {
	FilePath string
	Data     string
}

// Rename asks for Entry to be renamed in place to DestinationName.
type Rename struct {
	Entry           Entry
	DestinationName string
}

// Renamed reports a completed move.
type Renamed struct {
	Entry   Entry
	NewPath string
}

// Create asks for a new file or folder called Name in Entry's target directory.
type Create struct {
	Name  string
	Entry Entry
}

// UploadFile is one file picked for upload. Open is called once, when its turn comes.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Upload asks for Files to be written sequentially into Entry's target directory.
type Upload struct {
	Entry Entry
	Files []UploadFile
}

// UploadProgress reports bytes written so far for one file of an upload batch.
type UploadProgress struct {
	Filename string
	Loaded   int64
	Total    int64
}

// OperationFailed reports a remote operation that did not complete.
type OperationFailed struct {
	Op   string
	Path string
	Err  error
}

// NoticeLevel is the severity of a user-facing notice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a message meant for the user.
type Notice struct {
	Level   NoticeLevel
	Message string
}
