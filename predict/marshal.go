package predict

import (
	"encoding/binary"
	"errors"

	"github.com/coregx/ahocorasick"

	"github.com/coregx/redfa/dfa"
)

// Blob layout, all multi-byte fields big-endian:
//
//	magic "rxpd", version, flags, method, min:u16
//	chr: len:u8 bytes
//	[flagBit]  bitlen:u8 bit[256]
//	[flagHash] hashlen:u8 pmh[4096] pma[4096]
//	[flagCut]  depth:u8 lbk:u16 lbm:u16 cutlen:u8 cut fst[32] cbk[32]
//	[flagLits] count:u16 (len:u16 bytes)*
const (
	blobMagic   = "rxpd"
	blobVersion = 1
)

const (
	flagExact = 1 << iota
	flagBit
	flagHash
	flagCut
	flagLits
)

var (
	// ErrFormat reports a blob that is not a predictor or is corrupt.
	ErrFormat = errors.New("predict: malformed predictor blob")

	// ErrVersion reports a predictor written by an incompatible version.
	ErrVersion = errors.New("predict: unsupported predictor version")
)

// Marshal serializes the predictor. The deep hash bitsets are derived
// data and are not written; an unmarshaled predictor predicts slightly
// less far ahead but accepts and rejects identically.
func (p *Predictor) Marshal() []byte {
	var flags byte
	if p.Exact {
		flags |= flagExact
	}
	if p.BitLen > 0 {
		flags |= flagBit
	}
	if p.PMHLen > 0 {
		flags |= flagHash
	}
	if p.CutDepth > 0 {
		flags |= flagCut
	}
	if len(p.lits) > 0 {
		flags |= flagLits
	}

	out := make([]byte, 0, 64)
	out = append(out, blobMagic...)
	out = append(out, blobVersion, flags, byte(p.method))
	out = binary.BigEndian.AppendUint16(out, uint16(p.Min))
	out = append(out, byte(len(p.Chr)))
	out = append(out, p.Chr...)
	if flags&flagBit != 0 {
		out = append(out, byte(p.BitLen))
		out = append(out, p.Bit[:]...)
	}
	if flags&flagHash != 0 {
		out = append(out, byte(p.PMHLen))
		out = append(out, p.PMH...)
		out = append(out, p.PMA...)
	}
	if flags&flagCut != 0 {
		out = append(out, byte(p.CutDepth))
		out = binary.BigEndian.AppendUint16(out, p.Lbk)
		out = binary.BigEndian.AppendUint16(out, p.Lbm)
		out = append(out, byte(len(p.Cut)))
		out = append(out, p.Cut...)
		out = append(out, p.Fst[:]...)
		out = append(out, p.Cbk[:]...)
	}
	if flags&flagLits != 0 {
		out = binary.BigEndian.AppendUint16(out, uint16(len(p.lits)))
		for _, lit := range p.lits {
			out = binary.BigEndian.AppendUint16(out, uint16(len(lit)))
			out = append(out, lit...)
		}
	}
	return out
}

// Unmarshal reconstructs a predictor from a Marshal blob.
func Unmarshal(blob []byte) (*Predictor, error) {
	r := reader{buf: blob}
	if string(r.take(4)) != blobMagic {
		return nil, ErrFormat
	}
	if v := r.u8(); r.err == nil && v != blobVersion {
		return nil, ErrVersion
	}
	flags := r.u8()
	p := &Predictor{}
	p.method = Method(r.u8())
	p.Min = int(r.u16())
	p.Exact = flags&flagExact != 0
	p.Chr = append([]byte(nil), r.take(int(r.u8()))...)
	if flags&flagBit != 0 {
		p.BitLen = int(r.u8())
		copy(p.Bit[:], r.take(256))
	}
	if flags&flagHash != 0 {
		p.PMHLen = int(r.u8())
		p.PMH = append([]byte(nil), r.take(dfa.HashSize)...)
		p.PMA = append([]byte(nil), r.take(dfa.HashSize)...)
	}
	if flags&flagCut != 0 {
		p.CutDepth = int(r.u8())
		p.Lbk = r.u16()
		p.Lbm = r.u16()
		p.Cut = append([]byte(nil), r.take(int(r.u8()))...)
		copy(p.Fst[:], r.take(32))
		copy(p.Cbk[:], r.take(32))
	}
	if flags&flagLits != 0 {
		n := int(r.u16())
		for i := 0; i < n && r.err == nil; i++ {
			p.lits = append(p.lits, append([]byte(nil), r.take(int(r.u16()))...))
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(p.lits) > 0 {
		builder := ahocorasick.NewBuilder()
		for _, lit := range p.lits {
			builder.AddPattern(lit)
		}
		if auto, err := builder.Build(); err == nil {
			p.ac = auto
		}
	}
	p.finish()
	return p, nil
}

// reader is a cursor over the blob that latches the first range error.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil || n < 0 || r.pos+n > len(r.buf) {
		r.err = ErrFormat
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}
