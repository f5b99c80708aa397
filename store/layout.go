package store

// Fixed offsets and field lengths, in bytes, for the Fob record. The layout
// is normative (spec.md §6): changing any offset or length breaks wire and
// on-disk compatibility with every other device in the system.
const (
	FobSecretOffset    = 0x100
	FobSecretLen       = 32
	FobSecretEncOffset = 0x120
	FobSecretEncLen    = 32
	FobSaltOffset      = 0x140
	FobSaltLen         = 12
	FobPinHashOffset   = 0x160
	FobPinHashLen      = 32
	FobCarIDOffset     = 0x200
	FobCarIDLen        = 4
	FobFeat1SigOffset  = 0x240
	FobFeat2SigOffset  = 0x280
	FobFeat3SigOffset  = 0x2C0
	FobFeatSigLen      = 64
	FobCarPublicOffset = 0x300
	FobCarPublicLen    = 64
	FobIsPairedOffset  = 0x400
	FobIsPairedLen     = 4
)

// Fixed offsets and field lengths, in bytes, for the Car record.
const (
	CarSecretOffset           = 0x100
	CarSecretLen              = 32
	CarManufacturerPubOffset  = 0x120
	CarManufacturerPubLen     = 64
	CarFobPublicOffset        = 0x160
	CarFobPublicLen           = 64
	CarCarIDOffset            = 0x200
	CarCarIDLen               = 4
	CarMsgFeat3Offset         = 0x700
	CarMsgFeat2Offset         = 0x740
	CarMsgFeat1Offset         = 0x780
	CarMsgUnlockOffset        = 0x7C0
	CarMsgLen                 = 64
)

// FeatureSigOffset returns the store offset of feature slot n (1, 2 or 3).
// Reports ok=false for any other value. feature.Enrolment also rejects a
// slot number outside 1..3 before calling here; the car only ever iterates
// slots 1..3 when verifying tokens.
func FeatureSigOffset(n int) (offset int, ok bool) {
	switch n {
	case 1:
		return FobFeat1SigOffset, true
	case 2:
		return FobFeat2SigOffset, true
	case 3:
		return FobFeat3SigOffset, true
	default:
		return 0, false
	}
}
