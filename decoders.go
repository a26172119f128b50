// SPDX-License-Identifier: EPL-2.0

package pcmring

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/pcmring/audio"
	"github.com/ik5/pcmring/formats/aiff"
	"github.com/ik5/pcmring/formats/mp3"
	"github.com/ik5/pcmring/formats/vorbis"
	"github.com/ik5/pcmring/formats/wav"
)

// Decoders returns a registry with every bundled decoder, keyed by format
// name and file extension.
func Decoders() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("wav", wav.Decoder{}, ".wav", ".wave")
	r.Register("aiff", aiff.Decoder{}, ".aiff", ".aif")
	r.Register("mp3", mp3.Decoder{}, ".mp3")
	r.Register("vorbis", vorbis.Decoder{}, ".ogg", ".oga")
	return r
}

// OpenFile decodes path with the decoder registered for its extension.
func OpenFile(path string) (audio.Source, error) {
	return OpenFileWith(Decoders(), path)
}

// OpenFileWith is OpenFile with a caller supplied registry. Closing the
// returned source closes the file.
func OpenFileWith(r *audio.Registry, path string) (audio.Source, error) {
	dec, format, ok := r.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", audio.ErrUnknownFormat, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s as %s: %w", path, format, err)
	}
	return src, nil
}
