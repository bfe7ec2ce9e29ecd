package gpx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/tastrails/trails/server/internal/lib/geo"
)

// document mirrors the subset of GPX 1.0/1.1 the parser reads. Attributes
// and optional values are pointers so that absence can be told apart from
// zero.
type document struct {
	XMLName  xml.Name     `xml:"gpx"`
	Creator  *string      `xml:"creator,attr"`
	Time     *string      `xml:"time"` // GPX 1.0
	Metadata *metadataXML `xml:"metadata"`
	Tracks   []trackXML   `xml:"trk"`
}

type metadataXML struct {
	Time *string `xml:"time"`
}

type trackXML struct {
	Name        *string      `xml:"name"`
	Description *string      `xml:"desc"`
	Segments    []segmentXML `xml:"trkseg"`
}

type segmentXML struct {
	Points []pointXML `xml:"trkpt"`
}

type pointXML struct {
	Lat       *string `xml:"lat,attr"`
	Lon       *string `xml:"lon,attr"`
	Elevation *string `xml:"ele"`
	Time      *string `xml:"time"`
}

// Timestamp layouts accepted for <time>, most specific first
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// Parse decodes a GPX document. Every trkpt of every trkseg of every trk is
// appended to a single flat point sequence in document order.
func Parse(data []byte) (TrackData, error) {
	track, err := parseDocument(data)
	if err != nil {
		return TrackData{}, newProcessingError(ParseError, err)
	}
	return track, nil
}

func parseDocument(data []byte) (TrackData, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return TrackData{}, errors.New("empty document")
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return TrackData{}, err
	}

	points := []Point{}
	for ti, trk := range doc.Tracks {
		for si, seg := range trk.Segments {
			for pi, pt := range seg.Points {
				point, err := pt.toPoint()
				if err != nil {
					return TrackData{}, fmt.Errorf("track %d segment %d point %d: %w", ti, si, pi, err)
				}
				points = append(points, point)
			}
		}
	}

	track := TrackData{Points: points}
	if len(doc.Tracks) > 0 {
		track.Name = nonEmpty(doc.Tracks[0].Name)
		track.Description = nonEmpty(doc.Tracks[0].Description)
	}
	track.Metadata.Creator = nonEmpty(doc.Creator)

	recorded := doc.Time
	if doc.Metadata != nil && doc.Metadata.Time != nil {
		recorded = doc.Metadata.Time
	}
	if recorded != nil {
		ts, err := parseTime(*recorded)
		if err != nil {
			return TrackData{}, fmt.Errorf("metadata time: %w", err)
		}
		track.Metadata.RecordedAt = &ts
	}

	return track, nil
}

// decodeDocument decodes the single root element and rejects text or
// elements outside it
func decodeDocument(data []byte) (document, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var doc document
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return document{}, errors.New("no root element")
		}
		if err != nil {
			return document{}, err
		}

		if start, ok := tok.(xml.StartElement); ok {
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return document{}, err
			}
			break
		}
		if err := checkOutsideRoot(tok); err != nil {
			return document{}, err
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return doc, nil
		}
		if err != nil {
			return document{}, err
		}
		if _, ok := tok.(xml.StartElement); ok {
			return document{}, errors.New("content after root element")
		}
		if err := checkOutsideRoot(tok); err != nil {
			return document{}, err
		}
	}
}

// checkOutsideRoot allows only whitespace, comments and processing
// instructions around the root element
func checkOutsideRoot(tok xml.Token) error {
	if text, ok := tok.(xml.CharData); ok && len(bytes.TrimSpace(text)) > 0 {
		return errors.New("text outside root element")
	}
	return nil
}

func (pt pointXML) toPoint() (Point, error) {
	if pt.Lat == nil {
		return Point{}, errors.New("missing lat attribute")
	}
	if pt.Lon == nil {
		return Point{}, errors.New("missing lon attribute")
	}

	lat, err := parseDecimal(*pt.Lat)
	if err != nil {
		return Point{}, fmt.Errorf("invalid lat %q: %w", *pt.Lat, err)
	}
	lon, err := parseDecimal(*pt.Lon)
	if err != nil {
		return Point{}, fmt.Errorf("invalid lon %q: %w", *pt.Lon, err)
	}

	p := Point{Latitude: lat, Longitude: lon}
	if !geo.IsValidCoordinate(p.Geo()) {
		return Point{}, fmt.Errorf("coordinates out of range: lat=%v lon=%v", lat, lon)
	}

	// Empty <ele/> and <time/> elements are treated as absent
	if raw := nonEmpty(pt.Elevation); raw != nil {
		ele, err := parseDecimal(*raw)
		if err != nil {
			return Point{}, fmt.Errorf("invalid ele %q: %w", *raw, err)
		}
		p.Elevation = &ele
	}

	if raw := nonEmpty(pt.Time); raw != nil {
		ts, err := parseTime(*raw)
		if err != nil {
			return Point{}, err
		}
		p.Timestamp = &ts
	}

	return p, nil
}

// parseDecimal rejects NaN and infinities as well as non-numeric text
func parseDecimal(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
