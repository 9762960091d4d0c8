// ABOUTME: WAV (RIFF) decoder
// ABOUTME: Parses fmt/data chunks and converts PCM or float payloads to mono
package decode

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// DecodeWAV parses a RIFF/WAVE byte stream into mono float32 samples at
// the engine sample rate. 8/16/24-bit PCM and 32-bit float payloads are
// supported; other chunks are skipped.
func DecodeWAV(data []byte) ([]float32, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bitDepth   int
		haveFmt    bool
		payload    []byte
	)

	// Walk chunks: each has a 4-byte id and a 4-byte little-endian size.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short (%d bytes)", size)
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitDepth = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true

		case "data":
			payload = data[body : body+size]
		}

		// Chunk bodies are word-aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("missing fmt chunk")
	}
	if payload == nil {
		return nil, fmt.Errorf("missing data chunk")
	}
	if channels < 1 || sampleRate < 1 {
		return nil, fmt.Errorf("invalid format: %d channels at %d Hz", channels, sampleRate)
	}

	samples, err := wavSamples(format, bitDepth, payload)
	if err != nil {
		return nil, err
	}

	return toEngineRate(downmix(samples, channels), sampleRate), nil
}

func wavSamples(format uint16, bitDepth int, payload []byte) ([]float32, error) {
	switch {
	case format == wavFormatPCM && bitDepth == 8:
		// 8-bit WAV is unsigned.
		samples := make([]float32, len(payload))
		for i, b := range payload {
			samples[i] = (float32(b) - 128) / 128
		}
		return samples, nil

	case format == wavFormatPCM && bitDepth == 16:
		n := len(payload) / 2
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			s := int16(binary.LittleEndian.Uint16(payload[i*2:]))
			samples[i] = float32(s) / 32768
		}
		return samples, nil

	case format == wavFormatPCM && bitDepth == 24:
		n := len(payload) / 3
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int32(payload[i*3]) | int32(payload[i*3+1])<<8 | int32(payload[i*3+2])<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			samples[i] = float32(v) / 8388608
		}
		return samples, nil

	case format == wavFormatFloat && bitDepth == 32:
		n := len(payload) / 4
		samples := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(payload[i*4:])
			samples[i] = math.Float32frombits(bits)
		}
		return samples, nil

	default:
		return nil, fmt.Errorf("unsupported WAV encoding: format %d, %d-bit", format, bitDepth)
	}
}
