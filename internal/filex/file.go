// Package filex reads local files for the command-line tools.
package filex

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// MaxAvatarBytes caps avatar uploads.
const MaxAvatarBytes = 5 << 20

var ErrNotImage = errors.New("file is not an image")

// ReadImage reads at most limit bytes of an image file and returns it with
// its sniffed content type.
func ReadImage(path string, limit int64) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("%s is larger than %d bytes", path, limit)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, contentType)
	}
	return data, contentType, nil
}
