package utils

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

// ProgressReader wraps a reader with a byte progress bar for interactive
// transfers. In quiet mode it degrades to a plain pass-through.
type ProgressReader struct {
	reader io.Reader
	bar    *pb.ProgressBar
}

// NewProgressReader creates a progress reader over total bytes
func NewProgressReader(r io.Reader, total int64, prefix string, quiet bool) *ProgressReader {
	p := &ProgressReader{reader: r}

	if !quiet {
		tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }}`
		bar := pb.ProgressBarTemplate(tmpl).Start64(total)
		bar.Set(pb.Bytes, true)
		bar.Set(pb.SIBytesPrefix, true)
		bar.Set("prefix", prefix)
		p.bar = bar
		p.reader = bar.NewProxyReader(r)
	}

	return p
}

// Read implements io.Reader
func (p *ProgressReader) Read(buf []byte) (int, error) {
	return p.reader.Read(buf)
}

// Finish completes the progress bar
func (p *ProgressReader) Finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}
