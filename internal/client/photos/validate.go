// Package photos validates photo payloads and offloads them to object storage.
package photos

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/dmitrijs2005/logmoments/internal/common"
	_ "golang.org/x/image/webp"
)

// AllowedTypes lists the accepted MIME types.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/webp"}

type Info struct {
	MIME   string
	Width  int
	Height int
	Size   int
}

// Validate checks type (by content), byte size and pixel dimensions.
func Validate(data []byte) (Info, error) {
	info := Info{Size: len(data), MIME: http.DetectContentType(data)}

	if !allowed(info.MIME) {
		return info, fmt.Errorf("%w: %s", common.ErrUnsupportedFileType, info.MIME)
	}
	if info.Size > common.MaxPhotoBytes {
		return info, fmt.Errorf("%w: %d bytes", common.ErrFileTooLarge, info.Size)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return info, fmt.Errorf("%w: %v", common.ErrUnsupportedFileType, err)
	}
	info.Width, info.Height = cfg.Width, cfg.Height

	if cfg.Width > common.MaxPhotoWidth || cfg.Height > common.MaxPhotoHeight {
		return info, fmt.Errorf("%w: %dx%d", common.ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return info, nil
}

func allowed(mime string) bool {
	for _, t := range AllowedTypes {
		if t == mime {
			return true
		}
	}
	return false
}
