package tts

import (
	"bytes"
	"encoding/binary"
	"mime"
	"strconv"
	"time"
)

// DefaultSampleRate is assumed for raw PCM without a declared rate.
const DefaultSampleRate = 24000

// wavDuration reads the RIFF header of a WAV file. It walks the chunk list
// for "fmt " and "data" and gives up on anything malformed.
func wavDuration(b []byte) (time.Duration, bool) {
	if len(b) < 12 || !bytes.Equal(b[0:4], []byte("RIFF")) || !bytes.Equal(b[8:12], []byte("WAVE")) {
		return 0, false
	}
	var byteRate uint32
	for off := 12; off+8 <= len(b); {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(b) {
				return 0, false
			}
			byteRate = binary.LittleEndian.Uint32(b[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, false
			}
			if body+size > len(b) {
				size = len(b) - body
			}
			return time.Duration(size) * time.Second / time.Duration(byteRate), true
		}
		off = body + size + size%2
	}
	return 0, false
}

// rateFromMIME extracts the rate parameter of types like
// "audio/L16;codec=pcm;rate=24000".
func rateFromMIME(mt string) int {
	_, params, err := mime.ParseMediaType(mt)
	if err != nil {
		return 0
	}
	r, err := strconv.Atoi(params["rate"])
	if err != nil {
		return 0
	}
	return r
}

// NewPCMAudio wraps raw 16-bit mono PCM, taking the sample rate from mt when
// it declares one.
func NewPCMAudio(data []byte, mt string) *Audio {
	rate := rateFromMIME(mt)
	if rate == 0 {
		rate = DefaultSampleRate
	}
	return &Audio{Data: data, MIMEType: mt, SampleRate: rate}
}
