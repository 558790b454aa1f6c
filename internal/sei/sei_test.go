package sei

import (
	"bytes"
	"testing"
)

func TestPayloadFormat(t *testing.T) {
	t.Parallel()
	got := Payload(42, 1337)
	want := "frame_id=42;timestamp_ms=1337"
	if string(got) != want {
		t.Errorf("Payload = %q, want %q", got, want)
	}
}

func TestRawSideDataHasNoFraming(t *testing.T) {
	t.Parallel()
	raw := RawSideData(1, 16)
	if !bytes.Equal(raw[:16], UUID[:]) {
		t.Errorf("raw side-data UUID mismatch: %x", raw[:16])
	}
	if string(raw[16:]) != "frame_id=1;timestamp_ms=16" {
		t.Errorf("raw side-data payload = %q", raw[16:])
	}
}

func TestRBSPLayout(t *testing.T) {
	t.Parallel()
	rbsp := RBSP(1, 16)
	if rbsp[0] != payloadTypeUserDataUnregistered {
		t.Fatalf("rbsp[0] = %#x, want payload type 0x05", rbsp[0])
	}
	payload := Payload(1, 16)
	size := 16 + len(payload)
	sizeBytes := encodeSize(size)
	if !bytes.Equal(rbsp[1:1+len(sizeBytes)], sizeBytes) {
		t.Errorf("rbsp size bytes = %x, want %x", rbsp[1:1+len(sizeBytes)], sizeBytes)
	}
	uuidStart := 1 + len(sizeBytes)
	if !bytes.Equal(rbsp[uuidStart:uuidStart+16], UUID[:]) {
		t.Errorf("rbsp UUID mismatch")
	}
	if rbsp[len(rbsp)-1] != rbspTrailingBits {
		t.Errorf("rbsp trailing byte = %#x, want 0x80", rbsp[len(rbsp)-1])
	}
}

func TestEncodeSizeContinuation(t *testing.T) {
	t.Parallel()
	cases := []struct {
		size int
		want []byte
	}{
		{10, []byte{10}},
		{255, []byte{0xFF, 0}},
		{300, []byte{0xFF, 45}},
		{510, []byte{0xFF, 0xFF, 0}},
	}
	for _, c := range cases {
		got := encodeSize(c.size)
		if !bytes.Equal(got, c.want) {
			t.Errorf("encodeSize(%d) = %x, want %x", c.size, got, c.want)
		}
	}
}

func TestNALHeaders(t *testing.T) {
	t.Parallel()
	rbsp := []byte{0xAB}
	h264 := NALH264(rbsp)
	if h264[0] != 0x06 || h264[1] != 0xAB {
		t.Errorf("H264 NAL = %x", h264)
	}
	hevc := NALHEVC(rbsp)
	if hevc[0] != 0x4E || hevc[1] != 0x01 || hevc[2] != 0xAB {
		t.Errorf("HEVC NAL = %x", hevc)
	}
}

func TestAnnexBAndLengthPrefixed(t *testing.T) {
	t.Parallel()
	nal := []byte{0x06, 0xAB}
	ab := AnnexB(nal)
	if !bytes.Equal(ab[:4], []byte{0, 0, 0, 1}) {
		t.Errorf("AnnexB start code = %x", ab[:4])
	}
	lp := LengthPrefixed(nal)
	if lp[3] != byte(len(nal)) {
		t.Errorf("LengthPrefixed length = %d, want %d", lp[3], len(nal))
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		packet []byte
		want   BitstreamFormat
	}{
		{"annexb-3byte", []byte{0, 0, 1, 0x65, 0xFF}, FormatAnnexB},
		{"annexb-4byte", []byte{0, 0, 0, 1, 0x65}, FormatAnnexB},
		{"length-prefixed", []byte{0, 0, 0, 10, 0x65}, FormatLengthPrefixed},
		{"too-short", []byte{0, 0}, FormatUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetectFormat(c.packet); got != c.want {
				t.Errorf("DetectFormat(%x) = %v, want %v", c.packet, got, c.want)
			}
		})
	}
}

func TestPrependPreservesPacketBytes(t *testing.T) {
	t.Parallel()
	packet := []byte{0, 0, 0, 1, 0x65, 0xAA, 0xBB}
	out := Prepend(packet, false, 3, 48)
	if !bytes.HasSuffix(out, packet) {
		t.Errorf("Prepend did not preserve original packet as suffix")
	}
	if !bytes.HasPrefix(out, []byte(annexBStartCode)) {
		t.Errorf("Prepend did not start with Annex-B start code for Annex-B input")
	}
}

func TestIsHEVC(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"hevc_nvenc": true,
		"h264_nvenc": false,
		"libx265":    false,
		"h265":       true,
	}
	for name, want := range cases {
		if got := IsHEVC(name); got != want {
			t.Errorf("IsHEVC(%q) = %v, want %v", name, got, want)
		}
	}
}
