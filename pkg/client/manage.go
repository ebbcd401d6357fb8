package client

import (
	"github.com/marmos91/filedeck/internal/protocol/wire"
)

// ============================================================================
// Folder management
// ============================================================================

func (c *Client) folder(action string, args ...string) (string, error) {
	return c.request(append([]string{wire.CmdManageFolder, action}, args...)...)
}

// CreateDir creates a directory in the current directory.
func (c *Client) CreateDir(name string) (string, error) {
	return c.folder(wire.FolderCreate, name)
}

// RenameDir renames a directory in the current directory.
func (c *Client) RenameDir(oldName, newName string) (string, error) {
	return c.folder(wire.FolderRename, oldName, newName)
}

// DeleteDir deletes a directory. If the server asks for confirmation,
// answer is sent and the final status returned; prompted reports whether
// that happened.
func (c *Client) DeleteDir(name, answer string) (status string, prompted bool, err error) {
	status, err = c.folder(wire.FolderDelete, name)
	if err != nil || status != wire.StatusDirConfirm {
		return status, false, err
	}
	status, err = c.request(answer)
	return status, true, err
}

// ListDir returns the sorted names in the current directory.
func (c *Client) ListDir() ([]string, error) {
	if err := c.send(wire.CmdManageFolder, wire.FolderView); err != nil {
		return nil, err
	}
	return c.codec.ReadStrings()
}

// FolderCommand sends an arbitrary folder sub-command that takes no
// arguments and reads one status.
func (c *Client) FolderCommand(action string) (string, error) {
	return c.folder(action)
}

// LeaveFolderMenu sends the folder back token, which has no reply.
func (c *Client) LeaveFolderMenu() error {
	return c.send(wire.CmdManageFolder, wire.FolderBack)
}

// ============================================================================
// File management
// ============================================================================

func (c *Client) file(action string, args ...string) (string, error) {
	return c.request(append([]string{wire.CmdManageFile, action}, args...)...)
}

// CreateFile creates an empty file.
func (c *Client) CreateFile(path string) (string, error) {
	return c.file(wire.FileCreate, path)
}

// RenameFile gives a file a new name in the same directory.
func (c *Client) RenameFile(path, newName string) (string, error) {
	return c.file(wire.FileRename, path, newName)
}

// DeleteFile deletes a regular file.
func (c *Client) DeleteFile(path string) (string, error) {
	return c.file(wire.FileDelete, path)
}

// CopyFile copies a file into destDir.
func (c *Client) CopyFile(path, destDir string) (string, error) {
	return c.file(wire.FileCopy, path, destDir)
}

// MoveFile moves a file into destDir.
func (c *Client) MoveFile(path, destDir string) (string, error) {
	return c.file(wire.FileMove, path, destDir)
}

// ViewFile returns a file's lines. lines is nil when the server refused.
func (c *Client) ViewFile(path string) ([]string, string, error) {
	if err := c.send(wire.CmdManageFile, wire.FileView, path); err != nil {
		return nil, "", err
	}

	lines, _, err := c.codec.ReadOptionalStrings()
	if err != nil {
		return nil, "", err
	}
	status, err := c.codec.ReadString()
	return lines, status, err
}

// FileCommand sends an arbitrary file sub-command that takes no arguments
// and reads one status.
func (c *Client) FileCommand(action string) (string, error) {
	return c.file(action)
}

// LeaveFileMenu sends the file exit token, which has no reply.
func (c *Client) LeaveFileMenu() error {
	return c.send(wire.CmdManageFile, wire.FileExit)
}
