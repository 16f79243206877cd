package model_downloader

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cozy-creator/hf-hub/hub"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"
)

func (m *ModelDownloaderManager) downloadHuggingFace(repoID string) error {
	m.logger.Info("Downloading from HuggingFace", zap.String("repo_id", repoID))

	params := hub.DownloadParams{
		Repo: hub.NewRepo(repoID),
	}
	if _, err := m.hubClient.Download(&params); err != nil {
		return fmt.Errorf("failed to download model from HuggingFace: %w", err)
	}

	return nil
}

func (m *ModelDownloaderManager) downloadDirect(source *ModelSource) error {
	m.logger.Info("Downloading from direct URL", zap.String("url", source.Location))

	destDir := m.cachePathFor(source)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(source.Location))
	return m.downloadWithProgress(source.Location, destPath)
}

func (m *ModelDownloaderManager) verifyLocalFile(path string) error {
	if err := m.verifyFile(path); err != nil {
		return fmt.Errorf("failed to verify local file: %w", err)
	}

	return nil
}

func (m *ModelDownloaderManager) downloadWithProgress(url, destPath string) error {
	tmpPath := destPath + ".tmp"

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 5 * time.Minute
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second

	// Each retry resumes from whatever the previous attempt wrote.
	return backoff.Retry(func() error {
		return m.downloadWithResume(url, destPath, tmpPath)
	}, b)
}

func (m *ModelDownloaderManager) downloadWithResume(url, destPath, tmpPath string) error {
	var initialSize int64 = 0
	if info, err := os.Stat(tmpPath); err == nil {
		initialSize = info.Size()
	}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if initialSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", initialSize))
	}

	if m.hfToken != "" && strings.Contains(url, "huggingface.co") {
		req.Header.Set("Authorization", "Bearer "+m.hfToken)
	}

	client := &http.Client{
		Timeout: 0, // no total timeout, weights files run into gigabytes
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 60 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   60 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
			IdleConnTimeout:       60 * time.Second,
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var totalSize int64
	if initialSize > 0 {
		if resp.StatusCode == http.StatusPartialContent {
			totalSize = initialSize + resp.ContentLength
		} else if resp.StatusCode == http.StatusOK {
			// server ignored the range header, start over
			m.logger.Warn("Server doesn't support resume, starting download from beginning")
			initialSize = 0
		} else {
			return fmt.Errorf("resume failed with status %d", resp.StatusCode)
		}
	}
	if initialSize == 0 {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("download failed with status %d", resp.StatusCode)
		}
		totalSize = resp.ContentLength
	}

	flag := os.O_CREATE | os.O_WRONLY
	if initialSize > 0 {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}

	f, err := os.OpenFile(tmpPath, flag, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	progress := mpb.New(
		mpb.WithWidth(60),
		mpb.WithRefreshRate(180*time.Millisecond),
	)

	bar := progress.AddBar(totalSize,
		mpb.PrependDecorators(
			decor.Name(filepath.Base(destPath), decor.WC{W: 40, C: decor.DidentRight}),
			decor.CountersKibiByte("% .2f / % .2f"),
		),
		mpb.AppendDecorators(
			decor.EwmaETA(decor.ET_STYLE_GO, 90),
			decor.Name(" ] "),
			decor.EwmaSpeed(decor.UnitKiB, "% .2f", 60),
		),
	)

	if initialSize > 0 {
		bar.SetCurrent(initialSize)
	}

	downloadedSize := initialSize
	reader := bar.ProxyReader(resp.Body)
	buf := make([]byte, 32*1024)

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write failed: %w", werr)
			}

			downloadedSize += int64(n)
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
	}

	progress.Wait()

	if totalSize > 0 && downloadedSize != totalSize {
		return fmt.Errorf("download size mismatch: expected %d, got %d", totalSize, downloadedSize)
	}

	if err := m.verifyFile(tmpPath); err != nil {
		return fmt.Errorf("failed to verify file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}
