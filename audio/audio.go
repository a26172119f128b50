// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	goaudio "github.com/go-audio/audio"
)

// Source is a stream of interleaved integer PCM samples.
type Source interface {
	// Format reports the channel count and sample rate.
	Format() *goaudio.Format
	// BitDepth is the resolution of the samples PCMBuffer produces.
	BitDepth() int
	// PCMBuffer fills buf.Data with whole frames and returns the number of
	// samples (not frames) written. It returns io.EOF once the stream is
	// exhausted; n may be non-zero alongside io.EOF.
	PCMBuffer(buf *goaudio.IntBuffer) (n int, err error)
	// Close releases any resources.
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry for decoders by format key (e.g., "wav", "mp3", "vorbis") and by
// file extension.
type Registry struct {
	codecs map[string]Decoder
	exts   map[string]string

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		exts:   make(map[string]string),
		mtx:    &sync.Mutex{},
	}
}

// Register adds d under format and maps each extension (with or without the
// leading dot) to it.
func (r *Registry) Register(format string, d Decoder, exts ...string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
	for _, ext := range exts {
		r.exts[normExt(ext)] = format
	}
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// ForPath picks a decoder by the extension of path.
func (r *Registry) ForPath(path string) (Decoder, string, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	format, ok := r.exts[normExt(filepath.Ext(path))]
	if !ok {
		return nil, "", false
	}
	d, ok := r.codecs[format]
	return d, format, ok
}

// Formats lists the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func normExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
