// internal/docker/image.go
package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
)

// ListLocalImages lists the locally available Fluree server images, newest
// first.
func (e *engine) ListLocalImages(ctx context.Context) ([]ImageInfo, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("reference", ImageRepository)

	images, err := e.client.docker.ImageList(ctx, types.ImageListOptions{
		Filters: filterArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images (is the Docker daemon running?): %w", err)
	}

	var result []ImageInfo
	for _, img := range images {
		for _, repoTag := range img.RepoTags {
			tag, ok := tagFromReference(repoTag)
			if !ok {
				continue
			}
			result = append(result, ImageInfo{
				ID:      img.ID,
				Tag:     tag,
				Size:    img.Size,
				Created: time.Unix(img.Created, 0).UTC(),
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Created.After(result[j].Created)
	})
	return result, nil
}

// ImageExists checks whether the reference resolves locally.
func (e *engine) ImageExists(ctx context.Context, reference string) (bool, error) {
	_, _, err := e.client.docker.ImageInspectWithRaw(ctx, reference)
	if err != nil {
		if strings.Contains(err.Error(), "No such image") {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect image: %w", err)
	}
	return true, nil
}

// PullImage pulls an image, forwarding the daemon's progress events to the
// channel. The channel is closed when the pull finishes either way.
func (e *engine) PullImage(ctx context.Context, reference string, progress chan<- PullProgress) error {
	if progress != nil {
		defer close(progress)
	}

	reader, err := e.client.docker.ImagePull(ctx, reference, types.ImagePullOptions{})
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "manifest unknown") {
			return fmt.Errorf("%w: %s", ErrImageNotFound, reference)
		}
		return fmt.Errorf("failed to pull image %s: %w", reference, err)
	}
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	for {
		var event PullProgress
		if err := decoder.Decode(&event); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("error reading pull progress: %w", err)
		}

		if progress != nil {
			select {
			case progress <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if event.Error != "" {
			return fmt.Errorf("pull error: %s", event.Error)
		}
	}

	return nil
}

// FullReference expands a bare tag to the canonical repository reference.
func FullReference(tag string) string {
	return ImageRepository + ":" + tag
}

// tagFromReference extracts the tag from a repo:tag string when the
// repository is ours.
func tagFromReference(repoTag string) (string, bool) {
	prefix := ImageRepository + ":"
	if !strings.HasPrefix(repoTag, prefix) {
		return "", false
	}
	return strings.TrimPrefix(repoTag, prefix), true
}
