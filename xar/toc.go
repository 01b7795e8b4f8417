package xar

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/xcodereleases/unxip/xiperr"
)

const magic = "xar!"

type header struct {
	HeaderSize           uint16
	Version              uint16
	TOCCompressedSize    uint64
	TOCDecompressedSize  uint64
	Checksum             uint32
}

// tocXML is the slice of the XAR table-of-contents XML we care about: the
// "Content" file entry's data offset/length. The rest of the TOC (other
// files, checksums, signatures) is out of scope for unxip — this decoder
// is a black box that returns one byte range.
type tocXML struct {
	TOC struct {
		File []tocFile `xml:"file"`
	} `xml:"toc"`
}

type tocFile struct {
	Name string `xml:"name"`
	Data struct {
		Offset string `xml:"offset"`
		Length string `xml:"length"`
	} `xml:"data"`
	File []tocFile `xml:"file"` // TOC entries can nest
}

// Range is a byte span within the mapped archive.
type Range struct {
	Offset, Length int64
}

// LocatePBZX parses the XAR header and TOC (C2) and returns the byte range
// of the "Content" stream, verified to begin with the PBZX magic.
func LocatePBZX(m *Mapped) (Range, error) {
	b := m.Bytes
	if len(b) < 4 || string(b[:4]) != magic {
		return Range{}, xiperr.Malformedf("xar", "bad magic")
	}
	if len(b) < 28 {
		return Range{}, xiperr.Malformedf("xar", "header truncated")
	}
	var h header
	h.HeaderSize = binary.BigEndian.Uint16(b[4:6])
	h.Version = binary.BigEndian.Uint16(b[6:8])
	h.TOCCompressedSize = binary.BigEndian.Uint64(b[8:16])
	h.TOCDecompressedSize = binary.BigEndian.Uint64(b[16:24])
	h.Checksum = binary.BigEndian.Uint32(b[24:28])
	if h.Version != 1 {
		return Range{}, xiperr.Malformedf("xar", "unsupported version %d", h.Version)
	}

	tocStart := int64(h.HeaderSize)
	tocEnd := tocStart + int64(h.TOCCompressedSize)
	if tocEnd > int64(len(b)) || h.TOCCompressedSize < 2 {
		return Range{}, xiperr.Malformedf("xar", "TOC range out of bounds")
	}

	// The TOC is zlib-compressed with its 2-byte CMF/FLG header intact;
	// zlib.NewReader consumes it directly.
	zr, err := zlib.NewReader(bytes.NewReader(b[tocStart:tocEnd]))
	if err != nil {
		return Range{}, xiperr.Decodef("zlib", "%v", err)
	}
	defer zr.Close()
	tocXMLBytes := make([]byte, h.TOCDecompressedSize)
	if _, err := io.ReadFull(zr, tocXMLBytes); err != nil {
		return Range{}, xiperr.Decodef("zlib", "TOC inflate: %v", err)
	}

	var doc tocXML
	if err := xml.Unmarshal(tocXMLBytes, &doc); err != nil {
		return Range{}, xiperr.Malformedf("xar", "TOC XML: %v", err)
	}
	cf, ok := findContent(doc.TOC.File)
	if !ok {
		return Range{}, xiperr.Malformedf("xar", `TOC missing file named "Content"`)
	}
	off, err := strconv.ParseInt(cf.Data.Offset, 10, 64)
	if err != nil {
		return Range{}, xiperr.Malformedf("xar", "bad Content offset: %v", err)
	}
	length, err := strconv.ParseInt(cf.Data.Length, 10, 64)
	if err != nil {
		return Range{}, xiperr.Malformedf("xar", "bad Content length: %v", err)
	}

	base := tocEnd + off
	if base < 0 || length < 0 || base+length > int64(len(b)) {
		return Range{}, xiperr.Malformedf("xar", "Content range out of bounds")
	}
	if length < 4 || string(b[base:base+4]) != "pbzx" {
		return Range{}, xiperr.Malformedf("xar", "Content stream is not pbzx")
	}
	return Range{Offset: base, Length: length}, nil
}

func findContent(files []tocFile) (tocFile, bool) {
	for _, f := range files {
		if f.Name == "Content" {
			return f, true
		}
		if found, ok := findContent(f.File); ok {
			return found, true
		}
	}
	return tocFile{}, false
}
