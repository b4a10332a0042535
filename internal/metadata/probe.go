package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// MP3 duration via frame decoding; falls back to an average-bitrate estimate
// only if no frame decodes at all.
func probeMP3(path string) (time.Duration, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	sampleRate := 0
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				d, estErr := estimateFromFileSize(path, 192000) // assume 192 kbps
				return d, 0, estErr
			}
			break // partial decode; use what we have
		}
		if sampleRate == 0 {
			sampleRate = int(fr.Header().SampleRate())
		}
		total += fr.Duration()
		frames++
	}
	return total, sampleRate, nil
}

// FLAC duration and sample rate via the STREAMINFO metadata block.
func probeFLAC(path string) (time.Duration, int, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		secs := float64(si.NSamples) / float64(si.SampleRate)
		return time.Duration(secs * float64(time.Second)), int(si.SampleRate), nil
	}
	return 0, int(si.SampleRate), fmt.Errorf("flac stream missing sample info")
}

// WAV duration from the header plus file size. Sample-accurate length would
// require decoding every sample.
func probeWAV(path string) (time.Duration, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, 0, fmt.Errorf("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, 0, fmt.Errorf("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, 0, err
	}
	headerSize := int64(44)
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerFrame <= 0 {
		return 0, 0, fmt.Errorf("invalid sample frame size")
	}
	frames := pcmBytes / bytesPerFrame
	secs := float64(frames) / float64(dec.SampleRate)
	return time.Duration(secs * float64(time.Second)), int(dec.SampleRate), nil
}

// M4A (AAC in MP4) duration via a minimal 'moov'/'mvhd' atom scan. Avoids
// pulling in a full MP4 parser for two fields.
func probeM4A(path string) (time.Duration, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	for {
		head := make([]byte, 8)
		if err := readFull(f, head); err != nil {
			return 0, 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		atom := string(head[4:8])
		if size < 8 {
			return 0, 0, fmt.Errorf("invalid atom size")
		}
		if atom != "moov" {
			if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
				return 0, 0, err
			}
			continue
		}

		limit := int64(size) - 8
		for read := int64(0); read < limit; {
			subHead := make([]byte, 8)
			if err := readFull(f, subHead); err != nil {
				return 0, 0, err
			}
			subSize := binary.BigEndian.Uint32(subHead[0:4])
			subAtom := string(subHead[4:8])
			if subAtom == "mvhd" {
				return parseMvhd(f)
			}
			if subSize < 8 {
				return 0, 0, fmt.Errorf("invalid sub-atom size")
			}
			if _, err := f.Seek(int64(subSize)-8, io.SeekCurrent); err != nil {
				return 0, 0, err
			}
			read += int64(subSize)
		}
		break
	}
	return 0, 0, fmt.Errorf("mvhd atom not found")
}

func parseMvhd(f *os.File) (time.Duration, int, error) {
	version := make([]byte, 1)
	if err := readFull(f, version); err != nil {
		return 0, 0, err
	}
	var timescale uint32
	var durUnits uint64
	if version[0] == 1 { // 64-bit timestamps
		if _, err := f.Seek(3+8+8, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
		buf := make([]byte, 12)
		if err := readFull(f, buf); err != nil {
			return 0, 0, err
		}
		timescale = binary.BigEndian.Uint32(buf[0:4])
		durUnits = binary.BigEndian.Uint64(buf[4:12])
	} else {
		if _, err := f.Seek(3+4+4, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
		buf := make([]byte, 8)
		if err := readFull(f, buf); err != nil {
			return 0, 0, err
		}
		timescale = binary.BigEndian.Uint32(buf[0:4])
		durUnits = uint64(binary.BigEndian.Uint32(buf[4:8]))
	}
	if timescale == 0 {
		return 0, 0, fmt.Errorf("invalid timescale")
	}
	secs := float64(durUnits) / float64(timescale)
	return time.Duration(secs * float64(time.Second)), 0, nil
}

// estimateFromFileSize provides last-resort estimation if parsing fails.
func estimateFromFileSize(path string, bitrate int) (time.Duration, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, fmt.Errorf("invalid bitrate")
	}
	secs := st.Size() * 8 / int64(bitrate)
	return time.Duration(secs) * time.Second, nil
}
