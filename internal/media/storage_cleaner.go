package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// storageCleaner deletes videos from the local media storage directory
type storageCleaner struct {
	basePath string
	baseURL  string
	logger   *zap.Logger
}

// NewStorageCleaner creates a cleaner over local filesystem storage
func NewStorageCleaner(basePath, baseURL string, logger *zap.Logger) *storageCleaner {
	return &storageCleaner{
		basePath: basePath,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// generatePath converts underscores in mediaType to path separators.
// The result always lies inside basePath.
func (c *storageCleaner) generatePath(loc Location) (string, error) {
	if !validMediaType(loc.MediaType) || !validSegment(loc.FileID) {
		return "", fmt.Errorf("invalid location %s/%s: %w", loc.MediaType, loc.FileID, ErrUnresolvable)
	}

	typePath := strings.ReplaceAll(loc.MediaType, "_", string(filepath.Separator))
	full := filepath.Join(c.basePath, typePath, loc.FileID)

	root := filepath.Clean(c.basePath)
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	if !strings.HasPrefix(full, root) {
		return "", fmt.Errorf("path %q escapes media storage: %w", full, ErrUnresolvable)
	}
	return full, nil
}

// Exists reports whether the file behind loc is present
func (c *storageCleaner) Exists(loc Location) (bool, error) {
	path, err := c.generatePath(loc)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat media file: %w", err)
	}
	return true, nil
}

// Delete removes the file behind loc
func (c *storageCleaner) Delete(loc Location) error {
	path, err := c.generatePath(loc)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

// Cleanup resolves videoURL, then deletes the file if it is still present.
// Foreign URLs are skipped.
func (c *storageCleaner) Cleanup(ctx context.Context, videoURL string) error {
	loc, err := ResolveURL(c.baseURL, videoURL)
	if errors.Is(err, ErrUnresolvable) {
		c.logger.Debug("skipping unmanaged video", zap.String("url", videoURL), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	exists, err := c.Exists(loc)
	if err != nil {
		return err
	}
	if !exists {
		c.logger.Debug("video already removed", zap.String("url", videoURL))
		return nil
	}

	if err := c.Delete(loc); err != nil {
		return err
	}

	c.logger.Info("video removed", zap.String("media_type", loc.MediaType), zap.String("file_id", loc.FileID))
	return nil
}
