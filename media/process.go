package media

import (
	"bytes"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"wanderlust/utils"
)

const jpegQuality = 85

// Prepare sniffs, decodes and re-encodes an upload as JPEG, downscaling it to
// maxWidth when wider. EXIF orientation is applied before resizing.
func Prepare(src io.Reader, maxWidth int) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, utils.Errorf(utils.ErrBadRequest, "image exceeds 10 MB")
	}
	if ct, ok := utils.SniffImageType(data); !ok {
		return nil, utils.Errorf(utils.ErrBadRequest, "unsupported image type "+ct)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, utils.Errorf(utils.ErrBadRequest, "image could not be decoded")
	}
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
