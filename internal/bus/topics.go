package bus

import "github.com/crowdwave/reactoxide/internal/models"

// Commands (DO_*) ask a component to act. Notifications (ON_*) report that something happened.
var (
	DoSelectFileOrDirectory = NewTopic[models.Entry]("DO_SELECT_FILE_OR_DIRECTORY")
	DoDeselectAll           = NewTopic[struct{}]("DO_DESELECT_ALL")
	OnDirectoryOpen         = NewTopic[models.Entry]("ON_DIRECTORY_OPEN")
	OnDirectoryClose        = NewTopic[models.Entry]("ON_DIRECTORY_CLOSE")
	OnTreeChanged           = NewTopic[int]("ON_TREE_CHANGED")

	DoLoadFile   = NewTopic[models.Entry]("DO_LOAD_FILE")
	OnFileLoaded = NewTopic[models.FileLoaded]("ON_FILE_LOADED")
	DoSaveFile   = NewTopic[models.SaveFile]("DO_SAVE_FILE")
	OnFileSaved  = NewTopic[models.SaveFile]("ON_FILE_SAVED")

	DoDeleteFileOrDirectory  = NewTopic[models.Entry]("DO_DELETE_FILE_OR_DIRECTORY")
	OnFileOrDirectoryDeleted = NewTopic[models.Entry]("ON_FILE_OR_DIRECTORY_DELETED")
	DoRenameFileOrDirectory  = NewTopic[models.Rename]("DO_RENAME_FILE_OR_DIRECTORY")
	OnFileRenamed            = NewTopic[models.Renamed]("ON_FILE_RENAMED")
	OnDirectoryRenamed       = NewTopic[models.Renamed]("ON_DIRECTORY_RENAMED")
	DoNewFileCreate          = NewTopic[models.Create]("DO_NEWFILE_CREATE")
	DoNewFolderCreate        = NewTopic[models.Create]("DO_NEWFOLDER_CREATE")
	OnFileCreated            = NewTopic[string]("ON_FILE_CREATED")
	OnFolderCreated          = NewTopic[string]("ON_FOLDER_CREATED")
	DoUploadFiles            = NewTopic[models.Upload]("DO_UPLOAD_FILES")
	OnFileUploadProgress     = NewTopic[models.UploadProgress]("ON_FILE_UPLOAD_PROGRESS")
	OnFileUploadComplete     = NewTopic[models.Entry]("ON_FILE_UPLOAD_COMPLETE")
	OnOpenFilesChanged       = NewTopic[[]string]("ON_OPEN_FILES_CHANGED")
	OnOperationFailed        = NewTopic[models.OperationFailed]("ON_OPERATION_FAILED")
	OnNotice                 = NewTopic[models.Notice]("ON_NOTICE")
)
