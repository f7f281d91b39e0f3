package utils

import "strings"

// Image extensions the pipeline accepts as sources. Write support is
// narrower and enforced by the imaging package.
var imageExtensions = []string{
	".bmp", ".dib",
	".jpg", ".jpeg", ".jpe",
	".png", ".webp",
	".tiff", ".tif",
}

var jpegExtensions = []string{".jpg", ".jpeg", ".jpe"}

// ImageExtensions returns the recognized source image extensions.
func ImageExtensions() []string {
	out := make([]string, len(imageExtensions))
	copy(out, imageExtensions)
	return out
}

// IsImageExt reports whether ext (with dot, any case) is a recognized
// image extension.
func IsImageExt(ext string) bool {
	return containsExt(imageExtensions, ext)
}

// IsJPEGExt reports whether ext is one of the JPEG spellings.
func IsJPEGExt(ext string) bool {
	return containsExt(jpegExtensions, ext)
}

func containsExt(list []string, ext string) bool {
	if ext == "" {
		return false
	}
	lowered := strings.ToLower(ext)
	for _, e := range list {
		if e == lowered {
			return true
		}
	}
	return false
}
