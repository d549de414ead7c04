package view

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"memcore/arch"
	"memcore/merr"
	"memcore/types"
)

// defaultChunkSize bounds how much is read per round while scanning for a
// string terminator, so an unterminated string of garbage doesn't force a
// single maxLen-sized read against possibly-unmapped memory.
const defaultChunkSize = 256

// ReadCString reads a NUL-terminated narrow string starting at vaddr, up
// to maxLen bytes (spec §4.4: "reads up to max_len bytes, stops at first
// NUL, validates UTF-8 loosely or returns the raw bytes"). Invalid UTF-8
// is recovered via a Latin-1 (ISO-8859-1) decode rather than failing,
// since "validates loosely" rules out rejecting the whole string over one
// bad byte.
func ReadCString(v *VirtualMemory, vaddr types.Address, maxLen int) (string, error) {
	raw, err := readUntilNUL(v, vaddr, maxLen, 1)
	if err != nil {
		return "", err
	}
	if strings.ToValidUTF8(string(raw), "") == string(raw) {
		return string(raw), nil
	}
	decoded, decErr := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if decErr != nil {
		return string(raw), nil
	}
	return string(decoded), nil
}

// ReadWideString reads a NUL-terminated UTF-16 string (a "wide string" in
// Windows terms) starting at vaddr, up to maxLen bytes, decoding with
// ProcArch's endianness.
func ReadWideString(v *VirtualMemory, vaddr types.Address, maxLen int) (string, error) {
	raw, err := readUntilNUL(v, vaddr, maxLen, 2)
	if err != nil {
		return "", err
	}
	endian := unicode.LittleEndian
	if !isLittle(v) {
		endian = unicode.BigEndian
	}
	dec := unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder()
	decoded, decErr := dec.Bytes(raw)
	if decErr != nil {
		return "", merr.Wrap(merr.TranslationFailure, "view.ReadWideString", "invalid utf-16 sequence", decErr)
	}
	return string(decoded), nil
}

func isLittle(v *VirtualMemory) bool {
	return v.ProcArch.Endian == arch.LittleEndian
}

// readUntilNUL reads forward in chunks until it finds unitSize
// consecutive zero bytes (the string terminator for the given code unit
// width) or hits maxLen, returning everything read before the terminator.
func readUntilNUL(v *VirtualMemory, vaddr types.Address, maxLen, unitSize int) ([]byte, error) {
	const op = "view.readUntilNUL"
	var out []byte
	addr := vaddr
	for len(out) < maxLen {
		chunkLen := defaultChunkSize
		if remaining := maxLen - len(out); chunkLen > remaining {
			chunkLen = remaining
		}
		buf := make([]byte, chunkLen)
		if err := ReadInto(v, addr, buf); err != nil {
			if len(out) == 0 {
				return nil, merr.Wrap(merr.BackendError, op, "failed to read string bytes", err)
			}
			break
		}
		for i := 0; i+unitSize <= len(buf); i += unitSize {
			isZero := true
			for j := 0; j < unitSize; j++ {
				if buf[i+j] != 0 {
					isZero = false
					break
				}
			}
			if isZero {
				return append(out, buf[:i]...), nil
			}
		}
		out = append(out, buf...)
		addr = addr.Add(uint64(chunkLen))
	}
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out, nil
}
