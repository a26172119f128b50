// SPDX-License-Identifier: EPL-2.0

package audio

// Convert returns src adapted to rate and channels, wrapping it in a Mixer
// and a Resampler only where the source differs.
func Convert(src Source, rate, channels int) Source {
	f := src.Format()
	if f.NumChannels != channels {
		src = NewMixer(src, channels)
	}
	if f.SampleRate != rate {
		src = NewResampler(src, rate)
	}
	return src
}
