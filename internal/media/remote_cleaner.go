package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// remoteCleaner deletes videos through the media service HTTP API
type remoteCleaner struct {
	client  *resty.Client
	baseURL string
	logger  *zap.Logger
}

// NewRemoteCleaner creates a cleaner that calls DELETE /media/{mediaType}/{fileID}
// on the media service at serviceURL.
func NewRemoteCleaner(serviceURL, baseURL, apiKey string, logger *zap.Logger) *remoteCleaner {
	client := resty.New().
		SetBaseURL(serviceURL).
		SetHeader("X-API-Key", apiKey).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return newRemoteCleaner(client, baseURL, logger)
}

func newRemoteCleaner(client *resty.Client, baseURL string, logger *zap.Logger) *remoteCleaner {
	return &remoteCleaner{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Cleanup asks the media service to delete the video.
// A 404 means the object is already gone and counts as success.
func (c *remoteCleaner) Cleanup(ctx context.Context, videoURL string) error {
	loc, err := ResolveURL(c.baseURL, videoURL)
	if errors.Is(err, ErrUnresolvable) {
		c.logger.Debug("skipping unmanaged video", zap.String("url", videoURL), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"mediaType": loc.MediaType,
			"fileID":    loc.FileID,
		}).
		Delete("/media/{mediaType}/{fileID}")
	if err != nil {
		return fmt.Errorf("failed to call media service: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusNoContent:
		c.logger.Info("video removed", zap.String("media_type", loc.MediaType), zap.String("file_id", loc.FileID))
		return nil
	case http.StatusNotFound:
		c.logger.Debug("video already removed", zap.String("url", videoURL))
		return nil
	default:
		return fmt.Errorf("media service returned status %d: %s", resp.StatusCode(), resp.String())
	}
}
