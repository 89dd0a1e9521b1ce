package video

import (
	"bytes"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

// H264 NAL unit types
const (
	nalIDR = 5
	nalSPS = 7
)

const defaultMaxStream = 4 << 20

// assembler depacketizes H264 RTP into an Annex-B buffer that starts at the
// most recent SPS, so the buffer is always decodable on its own once it
// holds an IDR slice.
type assembler struct {
	depacketizer codecs.H264Packet
	buf          bytes.Buffer
	hasSPS       bool
	hasIDR       bool
	maxBytes     int
}

func newAssembler(maxBytes int) *assembler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxStream
	}
	return &assembler{maxBytes: maxBytes}
}

// push adds one RTP packet. It reports true when the packet completed an
// access unit and the buffer can be decoded.
func (a *assembler) push(pkt *rtp.Packet) bool {
	nals, err := a.depacketizer.Unmarshal(pkt.Payload)
	if err != nil || len(nals) == 0 {
		// Malformed, or a fragment still in progress
		return false
	}

	types := nalTypes(nals)
	for _, t := range types {
		if t == nalSPS {
			a.reset()
			a.hasSPS = true
			break
		}
	}
	if !a.hasSPS {
		return false
	}

	a.buf.Write(nals)
	for _, t := range types {
		if t == nalIDR {
			a.hasIDR = true
		}
	}

	if a.buf.Len() > a.maxBytes {
		a.reset()
		return false
	}
	return pkt.Marker && a.hasIDR
}

// stream returns a copy of the buffered Annex-B stream.
func (a *assembler) stream() []byte {
	return append([]byte(nil), a.buf.Bytes()...)
}

func (a *assembler) reset() {
	a.buf.Reset()
	a.hasSPS = false
	a.hasIDR = false
}

// nalTypes returns the type of each NAL unit in an Annex-B buffer.
func nalTypes(annexB []byte) []uint8 {
	var types []uint8
	for i := 0; i+3 < len(annexB); i++ {
		if annexB[i] == 0 && annexB[i+1] == 0 && annexB[i+2] == 1 {
			types = append(types, annexB[i+3]&0x1f)
			i += 3
		}
	}
	return types
}
