package saves

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
)

// The game writes UE4 GVAS saves whose payload sits in zlib-compressed CSDC
// blocks. World saves expose their metadata as named properties; character
// saves carry the character name inside the SDCP block.

// WorldMeta is the metadata recoverable from a world save.
type WorldMeta struct {
	WorldName string
	WorldGUID string
	MapName   string
	WorldSeed uint32
	HasSeed   bool
}

var (
	gvasMagic = []byte("GVAS")
	csdcMagic = []byte("CSDC")

	propWorldName = []byte("SG_WN")
	propWorldGUID = []byte("SG_WGUID")
	propWorldSeed = []byte("SG_WS")
	propMapName   = []byte("SG_MN")

	errNotGVAS  = errors.New("not a GVAS save file")
	errNoCSDC   = errors.New("no decompressible CSDC block")
	errNotFound = errors.New("property not found")
)

// csdcHeaderOffsets are the observed distances from the CSDC magic to the
// start of the zlib stream; the header size varies between game versions.
var csdcHeaderOffsets = []int{60, 24, 36, 48, 52, 56, 64}

// ParseWorldSave extracts metadata from an MW_*.sav file (or any of its
// version copies, which share the format).
func ParseWorldSave(path string) (*WorldMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(data, gvasMagic) {
		return nil, errNotGVAS
	}

	payload, err := decompressFirstCSDC(data)
	if err != nil {
		return nil, err
	}

	meta := &WorldMeta{}
	if name, err := extractStringProperty(payload, propWorldName); err == nil {
		meta.WorldName = name
	}
	if guid, err := extractStringProperty(payload, propWorldGUID); err == nil {
		meta.WorldGUID = guid
	}
	if m, err := extractStringProperty(payload, propMapName); err == nil {
		meta.MapName = m
	}
	if seed, err := extractIntProperty(payload, propWorldSeed); err == nil {
		meta.WorldSeed = seed
		meta.HasSeed = true
	}
	return meta, nil
}

// ParseCharacterName extracts the character name from an MC_*.sav file.
// Character saves hold several CSDC blocks; the one whose payload carries
// the SDCP marker stores the name at a fixed offset.
func ParseCharacterName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !bytes.HasPrefix(data, gvasMagic) {
		return "", errNotGVAS
	}

	pos := 0
	for {
		idx := bytes.Index(data[pos:], csdcMagic)
		if idx < 0 {
			return "", errNotFound
		}
		blockStart := pos + idx
		pos = blockStart + len(csdcMagic)

		payload, err := inflate(data[blockStart+60:])
		if err != nil {
			continue
		}
		if len(payload) < 40 || !bytes.Equal(payload[4:8], []byte("SDCP")) {
			continue
		}
		// Signed name length at offset 29, the text at 33.
		nameLen := int32(binary.LittleEndian.Uint32(payload[29:33]))
		name, err := decodeUEString(payload[33:], nameLen)
		if err != nil {
			return "", err
		}
		return name, nil
	}
}

func decompressFirstCSDC(data []byte) ([]byte, error) {
	idx := bytes.Index(data, csdcMagic)
	if idx < 0 {
		return nil, errNoCSDC
	}
	for _, off := range csdcHeaderOffsets {
		start := idx + off
		if start >= len(data) {
			continue
		}
		payload, err := inflate(data[start:])
		if err != nil {
			continue
		}
		// Sanity check: real payloads carry SG_ property names.
		if len(payload) > 10 && bytes.Contains(payload, []byte("SG_")) {
			return payload, nil
		}
	}
	return nil, errNoCSDC
}

// inflate decompresses a zlib stream, tolerating trailing bytes after it.
func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	payload, err := io.ReadAll(r)
	if err != nil && len(payload) == 0 {
		return nil, err
	}
	return payload, nil
}

// extractStringProperty finds name + NUL + type byte 0x06 + int32 length +
// text. A negative length means UTF-16LE with abs(length) counting
// characters including the terminator; positive means UTF-8 counting bytes
// including the terminator.
func extractStringProperty(data, name []byte) (string, error) {
	pos := bytes.Index(data, name)
	if pos < 0 {
		return "", errNotFound
	}
	pos += len(name) + 1
	if pos+5 > len(data) || data[pos] != 0x06 {
		return "", errNotFound
	}
	pos++
	strLen := int32(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	return decodeUEString(data[pos:], strLen)
}

func extractIntProperty(data, name []byte) (uint32, error) {
	pos := bytes.Index(data, name)
	if pos < 0 {
		return 0, errNotFound
	}
	pos += len(name) + 1
	if pos+5 > len(data) || data[pos] != 0x02 {
		return 0, errNotFound
	}
	pos++
	return binary.LittleEndian.Uint32(data[pos : pos+4]), nil
}

const maxUEStringLen = 100

// decodeUEString decodes a UE4 length-prefixed string starting at data[0].
// The wide variant is decoded explicitly as UTF-16LE rather than assumed to
// be a single-byte encoding.
func decodeUEString(data []byte, strLen int32) (string, error) {
	switch {
	case strLen > 0:
		if strLen > maxUEStringLen || int(strLen) > len(data) {
			return "", errNotFound
		}
		return string(data[:strLen-1]), nil
	case strLen < 0:
		charCount := int(-strLen)
		if charCount > maxUEStringLen {
			return "", errNotFound
		}
		byteCount := charCount * 2
		if byteCount > len(data) {
			return "", errNotFound
		}
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		decoded, err := dec.Bytes(data[: byteCount-2 : byteCount-2])
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	default:
		return "", errNotFound
	}
}
