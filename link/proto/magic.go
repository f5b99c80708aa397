// Magic-byte catalogue shared by every protocol on the board and host
// links (spec.md §6). Changing any payload length below breaks
// interoperability with any other implementation of this protocol.
package proto

// Magic is the one-byte tag prefixing every frame.
type Magic byte

const (
	PairReq  Magic = 0x40 // host -> paired fob, 3 B PIN
	PairSyn  Magic = 0x41 // paired fob -> unpaired fob, 3 B PIN
	PairAck  Magic = 0x42 // unpaired fob -> paired fob, no payload
	PairFin  Magic = 0x43 // paired fob -> unpaired fob, see PairFinLen
	PairRst  Magic = 0x44 // paired fob -> unpaired fob, no payload

	EnabFeat Magic = 0x50 // host -> paired fob, 72 B

	UnlockReq  Magic = 0x60 // fob -> car, no payload
	UnlockChal Magic = 0x61 // car -> fob, 72 B
	UnlockResp Magic = 0x62 // fob -> car, 72 B
	UnlockGood Magic = 0x63 // car -> fob, no payload
	UnlockFeat Magic = 0x64 // fob -> car, 192 B
	UnlockRst  Magic = 0x69 // either direction, no payload

	HostSuccess Magic = 0xAA // device -> host, no payload
	HostFailure Magic = 0xBB // device -> host, no payload
)

const (
	PinLen = 3

	// PairFinLen = secret(32) + car_id(4) + 3*feat_sig(64) + car_public(64).
	// (spec.md's prose arithmetic for this field reads "= 232 B", which
	// does not sum; the byte layout the record fields require is 292.)
	PairFinLen = 32 + 4 + 3*64 + 64

	// EnabFeatLen = car_id(4) + feature_number(4) + signature(64)
	EnabFeatLen = 4 + 4 + 64

	// UnlockChalLen / UnlockRespLen = nonce(8) + signature(64)
	UnlockChalLen = 8 + 64
	UnlockRespLen = 8 + 64

	// UnlockFeatLen = 3 signatures of 64 B each
	UnlockFeatLen = 3 * 64

	NonceLen = 8
)

// PayloadLen returns the fixed payload length that follows m, and whether m
// is a recognised magic byte at all.
func PayloadLen(m Magic) (int, bool) {
	switch m {
	case PairReq, PairSyn:
		return PinLen, true
	case PairAck, PairRst:
		return 0, true
	case PairFin:
		return PairFinLen, true
	case EnabFeat:
		return EnabFeatLen, true
	case UnlockReq, UnlockGood, UnlockRst:
		return 0, true
	case UnlockChal:
		return UnlockChalLen, true
	case UnlockResp:
		return UnlockRespLen, true
	case UnlockFeat:
		return UnlockFeatLen, true
	case HostSuccess, HostFailure:
		return 0, true
	default:
		return 0, false
	}
}
