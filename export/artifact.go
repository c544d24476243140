package export

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// ContentTypeGIF is the content type of artifacts produced by the GIF encoder.
const ContentTypeGIF = "image/gif"

// Artifact is a finished export. It is immutable once produced.
type Artifact struct {
	data []byte

	ContentType string
	Filename    string
	FrameCount  int
	Delay       time.Duration
}

// NewArtifact wraps encoded bytes. The Artifact takes ownership of data.
func NewArtifact(data []byte, contentType, filename string, frameCount int, delay time.Duration) *Artifact {
	return &Artifact{
		data:        data,
		ContentType: contentType,
		Filename:    filename,
		FrameCount:  frameCount,
		Delay:       delay,
	}
}

// Size returns the artifact length in bytes.
func (a *Artifact) Size() int { return len(a.data) }

// Bytes returns a copy of the artifact contents.
func (a *Artifact) Bytes() []byte {
	return bytes.Clone(a.data)
}

// WriteTo writes the artifact contents to w.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.data)
	return int64(n), err
}

// WriteFile stores the artifact under dir using its suggested filename and
// returns the written path.
func (a *Artifact) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create output directory %s", dir)
	}
	path := filepath.Join(dir, a.Filename)
	if err := os.WriteFile(path, a.data, 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write artifact %s", path)
	}
	return path, nil
}
