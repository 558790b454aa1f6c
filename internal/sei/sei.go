// Package sei builds user-data-unregistered SEI messages carrying
// per-frame metadata, in the framings an H.264/HEVC bitstream or its
// encoder-native side-data channel can carry.
package sei

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// UUID identifies the payload as carrying tigas per-frame metadata.
// 16 bytes, the ASCII text "TIGAS-SEI-000001".
var UUID = [16]byte{
	0x54, 0x49, 0x47, 0x41, 0x53, 0x2D, 0x53, 0x45,
	0x49, 0x2D, 0x30, 0x30, 0x30, 0x30, 0x30, 0x31,
}

const (
	payloadTypeUserDataUnregistered = 0x05
	rbspTrailingBits                = 0x80

	nalUnitTypeSEIH264 = 0x06
	hevcNALHeaderByte0 = 0x4E // nal_unit_type=39 (PREFIX_SEI), forbidden_zero_bit=0, layer high bit=0
	hevcNALHeaderByte1 = 0x01 // layer_id low bits=0, temporal_id_plus1=1

	annexBStartCode = "\x00\x00\x00\x01"
)

// Payload formats the text payload for frame_id/timestamp_ms metadata.
func Payload(frameID int, timestampMs int64) []byte {
	return []byte(fmt.Sprintf("frame_id=%d;timestamp_ms=%d", frameID, timestampMs))
}

// RawSideData builds the payload for encoder-native side-data injection:
// the UUID followed by the payload text, with no payload-type, size, or
// trailing bits.
func RawSideData(frameID int, timestampMs int64) []byte {
	payload := Payload(frameID, timestampMs)
	out := make([]byte, 0, 16+len(payload))
	out = append(out, UUID[:]...)
	out = append(out, payload...)
	return out
}

// RBSP builds the raw byte sequence payload for a user-data-unregistered
// SEI message: payload type, size (0xFF-continuation encoded), UUID,
// payload text, and RBSP trailing bits.
func RBSP(frameID int, timestampMs int64) []byte {
	payload := Payload(frameID, timestampMs)
	size := 16 + len(payload)

	out := make([]byte, 0, 2+size/255+1+size+1)
	out = append(out, payloadTypeUserDataUnregistered)
	out = append(out, encodeSize(size)...)
	out = append(out, UUID[:]...)
	out = append(out, payload...)
	out = append(out, rbspTrailingBits)
	return out
}

func encodeSize(size int) []byte {
	var out []byte
	for size >= 255 {
		out = append(out, 0xFF)
		size -= 255
	}
	out = append(out, byte(size))
	return out
}

// NALH264 wraps an RBSP in an H.264 SEI NAL header.
func NALH264(rbsp []byte) []byte {
	out := make([]byte, 0, 1+len(rbsp))
	out = append(out, nalUnitTypeSEIH264)
	out = append(out, rbsp...)
	return out
}

// NALHEVC wraps an RBSP in an HEVC PREFIX_SEI NAL header.
func NALHEVC(rbsp []byte) []byte {
	out := make([]byte, 0, 2+len(rbsp))
	out = append(out, hevcNALHeaderByte0, hevcNALHeaderByte1)
	out = append(out, rbsp...)
	return out
}

// AnnexB prepends the Annex-B start code to a NAL.
func AnnexB(nal []byte) []byte {
	out := make([]byte, 0, len(annexBStartCode)+len(nal))
	out = append(out, annexBStartCode...)
	out = append(out, nal...)
	return out
}

// LengthPrefixed prepends a 4-byte big-endian length (AVCC framing) to a
// NAL.
func LengthPrefixed(nal []byte) []byte {
	out := make([]byte, 4+len(nal))
	binary.BigEndian.PutUint32(out, uint32(len(nal)))
	copy(out[4:], nal)
	return out
}

// IsHEVC reports whether codecName names an HEVC/H.265 variant, by the
// substring rule the encoder falls back to when resolving a codec ID.
// Exact encoder names without such a substring (e.g. "libx265") are not
// recognized.
func IsHEVC(codecName string) bool {
	lower := strings.ToLower(codecName)
	return strings.Contains(lower, "hevc") || strings.Contains(lower, "h265") || strings.Contains(lower, "h.265")
}

// BitstreamFormat identifies whether an encoded packet uses Annex-B
// start codes or AVCC length prefixes.
type BitstreamFormat int

const (
	// FormatUnknown means the packet was too short to classify.
	FormatUnknown BitstreamFormat = iota
	FormatAnnexB
	FormatLengthPrefixed
)

// DetectFormat inspects the first bytes of an encoded packet to
// distinguish Annex-B (leading 00 00 01 or 00 00 00 01) from
// length-prefixed bitstreams.
func DetectFormat(packet []byte) BitstreamFormat {
	if len(packet) >= 3 && packet[0] == 0x00 && packet[1] == 0x00 && packet[2] == 0x01 {
		return FormatAnnexB
	}
	if len(packet) >= 4 && packet[0] == 0x00 && packet[1] == 0x00 && packet[2] == 0x00 && packet[3] == 0x01 {
		return FormatAnnexB
	}
	if len(packet) >= 4 {
		return FormatLengthPrefixed
	}
	return FormatUnknown
}

// Prepend builds a framed SEI NAL matching the detected bitstream format
// of an existing packet and returns it concatenated before the packet's
// existing payload.
func Prepend(packet []byte, hevc bool, frameID int, timestampMs int64) []byte {
	rbsp := RBSP(frameID, timestampMs)
	var nal []byte
	if hevc {
		nal = NALHEVC(rbsp)
	} else {
		nal = NALH264(rbsp)
	}

	var framed []byte
	switch DetectFormat(packet) {
	case FormatLengthPrefixed:
		framed = LengthPrefixed(nal)
	default:
		framed = AnnexB(nal)
	}

	out := make([]byte, 0, len(framed)+len(packet))
	out = append(out, framed...)
	out = append(out, packet...)
	return out
}
