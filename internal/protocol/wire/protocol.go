package wire

// Top-level command tokens.
const (
	CmdLogin        = "login"
	CmdRegister     = "register"
	CmdUpload       = "upload"
	CmdDownload     = "download"
	CmdManageFolder = "manage folder"
	CmdManageFile   = "manage file"
	CmdMoveTo       = "move to"
	CmdBack         = "back"
	CmdExit         = "exit"
)

// Folder management sub-command tokens.
const (
	FolderCreate     = "create"
	FolderRename     = "rename"
	FolderDelete     = "delete"
	FolderView       = "view folder"
	FolderBack       = "Back"
	FolderBackToMenu = "back-to-menu"
)

// File management sub-command tokens.
const (
	FileCreate = "create"
	FileRename = "rename"
	FileDelete = "delete"
	FileView   = "view file"
	FileCopy   = "copy"
	FileMove   = "move"
	FileExit   = "exit"
)

// ConfirmYes is the (case-insensitive) answer that confirms a recursive delete.
const ConfirmYes = "Y"

// Status literals. Clients match these strings exactly.
const (
	StatusSuccess    = "success"
	StatusFail       = "fail"
	StatusRegistered = "registered"
	StatusExists     = "exists"

	StatusRegistrationFailed = "Registration failed."
	StatusInvalidUsername    = "Invalid username."
	StatusInvalidCommand     = "Invalid command"
	StatusInvalidPath        = "Invalid path."

	StatusUploaded   = "File uploaded successfully."
	StatusDownloaded = "File downloaded successfully."
	StatusBadFile    = "Invalid file."

	StatusDirCreated       = "Directory created successfully."
	StatusDirRenamed       = "Directory renamed successfully."
	StatusDirMissing       = "Directory does not exist."
	StatusDirConfirm       = "Directory containing content. Continue? Y/n"
	StatusDirDeleted       = "Directory deleted successfully."
	StatusDeleteCancelled  = "Deletion cancelled."
	StatusBadFolderCommand = "Invalid folder management command"

	StatusFileExists     = "File already exists."
	StatusFileCreated    = "File created successfully."
	StatusSourceMissing  = "Source file does not exist."
	StatusFileRenamed    = "File renamed successfully."
	StatusFileMissing    = "File does not exist or is a directory."
	StatusFileRetrieved  = "File content retrieved successfully."
	StatusFileDeleted    = "File deleted successfully."
	StatusSourceNotFile  = "Source file does not exist or is a directory."
	StatusDestMissing    = "Destination directory does not exist."
	StatusFileCopied     = "File copied successfully."
	StatusFileMoved      = "File moved successfully."
	StatusBadFileCommand = "Invalid file management command."

	StatusInvalidDirectory = "Invalid directory"
	StatusAtRoot           = "Already at root directory or invalid move"
)

// Prefixes of status strings that carry a variable suffix.
const (
	PrefixMovedTo      = "Moved to: "
	PrefixMovedBack    = "Moved back to: "
	PrefixUploadError  = "Error uploading file: "
	PrefixCreateDirErr = "Error creating directory: "
	PrefixRenameDirErr = "Error renaming directory: "
	PrefixDeleteDirErr = "Error deleting directory: "
	PrefixFileOpError  = "Error: "
)

// MovedTo formats the move-to success status.
func MovedTo(dir string) string { return PrefixMovedTo + dir }

// MovedBack formats the back success status.
func MovedBack(dir string) string { return PrefixMovedBack + dir }

// WithError appends err's message to a status prefix.
func WithError(prefix string, err error) string { return prefix + err.Error() }
