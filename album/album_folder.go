package album

import (
	"context"
	"fmt"

	"kheops-album-tools/dicomfile"
	"kheops-album-tools/utils"

	"github.com/enriquebris/goconcurrentqueue"
	"go.uber.org/zap"
)

type FolderUpload struct {
	Album    *Album
	Uploaded int
	Failed   map[string]error
}

func (fu *FolderUpload) String() string {
	return fmt.Sprintf("album %s: %d uploaded, %d failed", fu.Album.ID, fu.Uploaded, len(fu.Failed))
}

// CreateAlbumFromFolder creates an album and uploads every DICOM file found
// under folder into it, one at a time. A failed upload is logged and
// skipped. The album is kept even when every upload fails.
func (c *Client) CreateAlbumFromFolder(ctx context.Context, name, description, folder string) (*FolderUpload, error) {
	files, err := utils.ListFiles(folder)
	if err != nil {
		return nil, err
	}

	album, err := c.CreateAlbum(ctx, name, description)
	if err != nil {
		return nil, err
	}

	backlog := goconcurrentqueue.NewFIFO()
	for _, file := range files {
		ok, err := dicomfile.Sniff(file)
		if err != nil {
			c.logger.Warn("cannot read file", zap.String("file", file), zap.Error(err))
			continue
		}
		if ok {
			backlog.Enqueue(file)
		}
	}

	result := &FolderUpload{Album: album, Failed: make(map[string]error)}
	for backlog.GetLen() > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item, err := backlog.Dequeue()
		if err != nil {
			break
		}
		file := item.(string)
		if err := c.UploadInstance(ctx, album.ID, file); err != nil {
			c.logger.Error("upload failed", zap.String("file", file), zap.Error(err))
			result.Failed[file] = err
			continue
		}
		result.Uploaded++
	}

	c.logger.Info("folder uploaded",
		zap.String("album_id", album.ID),
		zap.Int("uploaded", result.Uploaded),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}
