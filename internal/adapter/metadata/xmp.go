package metadata

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/user/photo-gallery/internal/entity"
	"github.com/user/photo-gallery/internal/repository"
)

const (
	nsDC   = "http://purl.org/dc/elements/1.1/"
	nsRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsTIFF = "http://ns.adobe.com/tiff/1.0/"

	// DefaultXMPScanLimit is how much of a file is searched for a packet.
	DefaultXMPScanLimit = 2 << 20
)

var (
	xmpStart = []byte("<x:xmpmeta")
	xmpEnd   = []byte("</x:xmpmeta>")
)

// XMPResolver reads dc:title, dc:description and tiff:Orientation from the
// XMP packet embedded in an image file.
type XMPResolver struct {
	scanLimit int64
}

func NewXMPResolver(scanLimit int64) *XMPResolver {
	if scanLimit <= 0 {
		scanLimit = DefaultXMPScanLimit
	}
	return &XMPResolver{scanLimit: scanLimit}
}

var _ repository.MetadataResolver = (*XMPResolver)(nil)

func (r *XMPResolver) Resolve(ctx context.Context, path string) (entity.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return entity.Metadata{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, r.scanLimit))
	if err != nil {
		return entity.Metadata{}, fmt.Errorf("read %s: %w", path, err)
	}

	packet := extractPacket(data)
	if packet == nil {
		return entity.Metadata{}, nil
	}
	return parseXMP(packet)
}

func extractPacket(data []byte) []byte {
	start := bytes.Index(data, xmpStart)
	if start < 0 {
		return nil
	}
	end := bytes.Index(data[start:], xmpEnd)
	if end < 0 {
		return nil
	}
	return data[start : start+end+len(xmpEnd)]
}

// parseXMP walks the packet's tokens. Alt/Bag/Seq containers all hold their
// values in rdf:li elements; the first non-empty one wins.
func parseXMP(packet []byte) (entity.Metadata, error) {
	dec := xml.NewDecoder(bytes.NewReader(packet))

	var (
		md    entity.Metadata
		field string
		inLi  bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return md, fmt.Errorf("parse xmp: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == nsDC && (t.Name.Local == "title" || t.Name.Local == "description"):
				field = t.Name.Local
			case t.Name.Space == nsTIFF && t.Name.Local == "Orientation":
				field = "orientation"
			case t.Name.Space == nsRDF && t.Name.Local == "li":
				inLi = true
			case t.Name.Space == nsRDF && t.Name.Local == "Description":
				for _, attr := range t.Attr {
					if attr.Name.Space == nsTIFF && attr.Name.Local == "Orientation" {
						applyOrientation(&md, attr.Value)
					}
				}
			}
		case xml.EndElement:
			switch {
			case t.Name.Space == nsRDF && t.Name.Local == "li":
				inLi = false
			case t.Name.Space == nsDC || t.Name.Space == nsTIFF:
				field = ""
			}
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch field {
			case "title":
				if inLi && !md.HasTitle {
					md.Title, md.HasTitle = text, true
				}
			case "description":
				if inLi && !md.HasDescription {
					md.Description, md.HasDescription = text, true
				}
			case "orientation":
				applyOrientation(&md, text)
			}
		}
	}
	return md, nil
}

// applyOrientation maps the EXIF/TIFF orientation code to a clockwise
// rotation. Mirrored orientations carry no usable rotation and are ignored.
func applyOrientation(md *entity.Metadata, value string) {
	if md.HasRotation {
		return
	}
	code, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return
	}
	switch code {
	case 1:
		md.Rotation, md.HasRotation = 0, true
	case 3:
		md.Rotation, md.HasRotation = 180, true
	case 6:
		md.Rotation, md.HasRotation = 90, true
	case 8:
		md.Rotation, md.HasRotation = 270, true
	}
}
