package vision

import "bytes"

// ImageFormat is an encoded image format recognized from magic bytes.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatGIF  ImageFormat = "gif"
	FormatWEBP ImageFormat = "webp"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	gif87a    = []byte("GIF87a")
	gif89a    = []byte("GIF89a")
)

// DetectImageFormat sniffs the image format from its leading bytes.
// Anything unrecognized, including empty input, is reported as JPEG. This is
// a fallback for labelling the upload, not validation: content types are
// checked by the caller before an image gets here.
func DetectImageFormat(data []byte) ImageFormat {
	switch {
	case bytes.HasPrefix(data, jpegMagic):
		return FormatJPEG
	case bytes.HasPrefix(data, pngMagic):
		return FormatPNG
	case bytes.HasPrefix(data, gif87a), bytes.HasPrefix(data, gif89a):
		return FormatGIF
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWEBP
	default:
		return FormatJPEG
	}
}

// MIMEType returns the image/* media type for the format.
func (f ImageFormat) MIMEType() string {
	return "image/" + string(f)
}
