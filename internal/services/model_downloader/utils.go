package model_downloader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cozy-creator/hf-hub/hub"
)

// converts "username/repo" to "models--username--repo", the hub cache
// folder layout
func repoFolderName(repoID string, repoType string) string {
	repoParts := strings.Split(repoID, "/")
	parts := append([]string{repoType + "s"}, repoParts...)
	return strings.Join(parts, "--")
}

// isRepoDownloaded reports whether a hub snapshot is complete: the main
// ref resolves, the snapshot has a config.json and at least one weights
// file, and no blob is half-written.
func isRepoDownloaded(hubClient *hub.Client, repoID string) bool {
	storageFolder := filepath.Join(hubClient.CacheDir, repoFolderName(repoID, "model"))
	if !pathExists(storageFolder) {
		return false
	}

	commitHash, err := os.ReadFile(filepath.Join(storageFolder, "refs", "main"))
	if err != nil {
		return false
	}

	snapshotPath := filepath.Join(storageFolder, "snapshots", strings.TrimSpace(string(commitHash)))
	if !pathExists(snapshotPath) {
		return false
	}

	if !pathExists(filepath.Join(snapshotPath, "config.json")) {
		return false
	}

	hasWeights := false
	hasIncomplete := false
	for _, dir := range []string{snapshotPath, filepath.Join(storageFolder, "blobs")} {
		filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}

			name := info.Name()
			if strings.HasSuffix(name, ".incomplete") {
				hasIncomplete = true
			}
			if strings.HasSuffix(name, ".safetensors") || strings.HasSuffix(name, ".bin") {
				hasWeights = true
			}

			return nil
		})
	}

	return hasWeights && !hasIncomplete
}

// cachePathFor names the cache directory for a non-hub source after the
// file's base name plus a short hash of the full URL, so two URLs with
// the same base name never collide.
func (m *ModelDownloaderManager) cachePathFor(source *ModelSource) string {
	h := sha256.Sum256([]byte(source.Location))
	urlHash := hex.EncodeToString(h[:])[:8]

	base := filepath.Base(source.Location)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	safeID := strings.ReplaceAll(base, "/", "-")

	return filepath.Join(m.modelsDir, fmt.Sprintf("%s--%s", safeID, urlHash))
}

// check if any valid model file exists in a directory
func (m *ModelDownloaderManager) isAnyValidModelInDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if m.verifyFile(path) == nil {
			return true
		}
	}

	return false
}

func (m *ModelDownloaderManager) verifyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file does not exist: %w", err)
	}

	if info.Size() < 1024*1024 { // 1MB minimum
		return fmt.Errorf("file too small: %d bytes", info.Size())
	}

	// partial downloads carry a .tmp suffix on top of the real extension
	ext := strings.ToLower(filepath.Ext(strings.TrimSuffix(path, ".tmp")))
	validExts := map[string]bool{
		".safetensors": true,
		".ckpt":        true,
		".pt":          true,
		".bin":         true,
	}
	if !validExts[ext] {
		return fmt.Errorf("invalid file extension: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	// read the head and tail to catch truncated writes
	buf := make([]byte, 1024*1024)
	if _, err := f.Read(buf); err != nil {
		return fmt.Errorf("failed to read file start: %w", err)
	}
	if _, err := f.Seek(-1024*1024, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek file end: %w", err)
	}
	if _, err := f.Read(buf); err != nil {
		return fmt.Errorf("failed to read file end: %w", err)
	}

	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
