package ingestserver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipkeeper/internal/fileutil"
	"clipkeeper/internal/textutil"
)

// Folder name fallbacks for missing respondent fields.
const (
	fallbackName   = "Anonymous"
	fallbackGender = "Unknown"
	fallbackAge    = "0"
)

// uploadMeta is the form metadata accompanying a clip.
type uploadMeta struct {
	UserName     string
	UserGender   string
	UserAge      string
	SentenceID   string
	SentenceText string
}

func (m uploadMeta) folderName() string {
	return textutil.SafeName(m.UserName, fallbackName) + "_" +
		textutil.SafeName(m.UserGender, fallbackGender) + "_" +
		textutil.SafeName(m.UserAge, fallbackAge)
}

// sentenceID parses the sentence ID, reporting 0 when absent or malformed.
func (m uploadMeta) sentenceID() int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(m.SentenceID), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// clipStore writes uploaded clips under root.
type clipStore struct {
	root string
	now  func() time.Time
}

// save streams src into a new file for meta and returns its path and size.
// A partially written file is removed on error.
func (s clipStore) save(meta uploadMeta, src io.Reader) (string, int64, error) {
	dir := filepath.Join(s.root, meta.folderName())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create upload folder: %w", err)
	}
	sid := meta.sentenceID()
	ms := s.now().UnixMilli()
	for {
		path := filepath.Join(dir, fmt.Sprintf("rec_%d_%d.mp4", sid, ms))
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			ms++
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("create clip file: %w", err)
		}
		written, copyErr := io.Copy(file, src)
		closeErr := file.Close()
		if copyErr == nil {
			copyErr = closeErr
		}
		if copyErr != nil {
			_ = fileutil.RemoveIfExists(path)
			return "", 0, fmt.Errorf("write clip: %w", copyErr)
		}
		return path, written, nil
	}
}

// writeSidecar stores the sentence text next to the clip.
func writeSidecar(clipPath, text string) (string, error) {
	txtPath := sidecarPath(clipPath)
	if err := os.WriteFile(txtPath, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	return txtPath, nil
}

func sidecarPath(clipPath string) string {
	return strings.TrimSuffix(clipPath, filepath.Ext(clipPath)) + ".txt"
}
