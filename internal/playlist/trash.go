package playlist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// moveToTrash moves a file to a recoverable location instead of deleting it
// permanently. It targets the freedesktop trash layout under the user's home
// and falls back to a .trash directory next to the file when no home
// directory is available.
func moveToTrash(path string) error {
	trashDir, infoDir, err := trashDirs(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(trashDir, 0755); err != nil {
		return fmt.Errorf("failed to create trash directory: %w", err)
	}

	base := filepath.Base(path)
	target := filepath.Join(trashDir, base)
	for i := 2; ; i++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		}
		target = filepath.Join(trashDir, fmt.Sprintf("%s.%d", base, i))
	}

	if err := moveFile(path, target); err != nil {
		return err
	}

	if infoDir != "" {
		writeTrashInfo(infoDir, filepath.Base(target), path)
	}
	return nil
}

func trashDirs(path string) (files string, info string, err error) {
	home, homeErr := os.UserHomeDir()
	if homeErr != nil {
		dir := filepath.Dir(path)
		return filepath.Join(dir, ".trash"), "", nil
	}
	trash := filepath.Join(home, ".local", "share", "Trash")
	return filepath.Join(trash, "files"), filepath.Join(trash, "info"), nil
}

// moveFile renames, falling back to copy-and-remove for cross-device moves.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to move to trash: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to move to trash: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to move to trash: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to move to trash: %w", err)
	}
	return os.Remove(src)
}

// writeTrashInfo records the original location so desktop environments can
// offer restore. Failure here is not fatal; the file is already safe.
func writeTrashInfo(infoDir, trashedName, originalPath string) {
	if err := os.MkdirAll(infoDir, 0755); err != nil {
		return
	}
	content := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		originalPath, time.Now().Format("2006-01-02T15:04:05"))
	infoPath := filepath.Join(infoDir, trashedName+".trashinfo")
	_ = os.WriteFile(infoPath, []byte(content), 0644)
}
