// Package exif stamps a capture record (device, time, location) into JPEG
// streams using go-exif's IFD builder.
package exif

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	exifv3 "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// DateLayout is the EXIF DateTime encoding.
const DateLayout = "2006:01:02 15:04:05"

const gpsDateLayout = "2006:01:02"

const (
	exifIfdPath = "IFD/Exif"
	gpsIfdPath  = "IFD/GPSInfo"
)

// Capture is the device identity and time stamped into an image.
type Capture struct {
	Make     string
	Model    string
	Software string
	TakenAt  time.Time
	GPS      *GPS
}

// GPS holds signed decimal degrees.
type GPS struct {
	Latitude  float64
	Longitude float64
}

// DMS is a coordinate split into whole degrees, minutes and seconds.
type DMS struct {
	Degrees uint32
	Minutes uint32
	Seconds uint32
}

// ToDMS truncates the absolute value of a decimal coordinate to DMS.
func ToDMS(decimal float64) DMS {
	v := math.Abs(decimal)
	deg := math.Floor(v)
	minutes := (v - deg) * 60
	whole := math.Floor(minutes)
	sec := math.Floor((minutes - whole) * 60)
	return DMS{Degrees: uint32(deg), Minutes: uint32(whole), Seconds: uint32(sec)}
}

func (d DMS) rationals() []exifcommon.Rational {
	return []exifcommon.Rational{
		{Numerator: d.Degrees, Denominator: 1},
		{Numerator: d.Minutes, Denominator: 1},
		{Numerator: d.Seconds, Denominator: 1},
	}
}

func latitudeRef(lat float64) string {
	if lat >= 0 {
		return "N"
	}
	return "S"
}

func longitudeRef(lon float64) string {
	if lon >= 0 {
		return "E"
	}
	return "W"
}

// tag is one named value destined for an IFD.
type tag struct {
	name  string
	value interface{}
}

// Build lays the capture out as IFD0 plus Exif and, when located, GPS
// sub-IFDs.
func Build(c Capture) (*exifv3.IfdBuilder, error) {
	if c.TakenAt.IsZero() {
		return nil, errors.New("exif: capture time required")
	}
	if c.GPS != nil && (math.Abs(c.GPS.Latitude) > 90 || math.Abs(c.GPS.Longitude) > 180) {
		return nil, fmt.Errorf("exif: coordinates out of range (%f, %f)", c.GPS.Latitude, c.GPS.Longitude)
	}

	mapping, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("exif: ifd mapping: %w", err)
	}
	root := exifv3.NewIfdBuilder(mapping, exifv3.NewTagIndex(), exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)

	stamp := c.TakenAt.Format(DateLayout)
	var ifd0 []tag
	for _, t := range []tag{{"Make", c.Make}, {"Model", c.Model}, {"Software", c.Software}} {
		if t.value != "" {
			ifd0 = append(ifd0, t)
		}
	}
	ifd0 = append(ifd0, tag{"DateTime", stamp})
	if err := add(root, ifd0); err != nil {
		return nil, err
	}

	exifIfd, err := exifv3.GetOrCreateIbFromRootIb(root, exifIfdPath)
	if err != nil {
		return nil, fmt.Errorf("exif: %s: %w", exifIfdPath, err)
	}
	if err := add(exifIfd, []tag{{"DateTimeOriginal", stamp}, {"DateTimeDigitized", stamp}}); err != nil {
		return nil, err
	}

	if c.GPS == nil {
		return root, nil
	}
	gpsIfd, err := exifv3.GetOrCreateIbFromRootIb(root, gpsIfdPath)
	if err != nil {
		return nil, fmt.Errorf("exif: %s: %w", gpsIfdPath, err)
	}
	err = add(gpsIfd, []tag{
		{"GPSVersionID", []byte{2, 3, 0, 0}},
		{"GPSLatitudeRef", latitudeRef(c.GPS.Latitude)},
		{"GPSLatitude", ToDMS(c.GPS.Latitude).rationals()},
		{"GPSLongitudeRef", longitudeRef(c.GPS.Longitude)},
		{"GPSLongitude", ToDMS(c.GPS.Longitude).rationals()},
		{"GPSDateStamp", c.TakenAt.UTC().Format(gpsDateLayout)},
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

func add(ib *exifv3.IfdBuilder, tags []tag) error {
	for _, t := range tags {
		if err := ib.AddStandardWithName(t.name, t.value); err != nil {
			return fmt.Errorf("exif: set %s: %w", t.name, err)
		}
	}
	return nil
}

// Stamp returns jpeg with its EXIF segment replaced by the capture.
func Stamp(jpeg []byte, c Capture) ([]byte, error) {
	if len(jpeg) < 4 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		return nil, errors.New("exif: not a jpeg stream")
	}
	ib, err := Build(c)
	if err != nil {
		return nil, err
	}

	parsed, err := jpegstructure.NewJpegMediaParser().ParseBytes(jpeg)
	if err != nil {
		return nil, fmt.Errorf("exif: parse jpeg: %w", err)
	}
	segments, ok := parsed.(*jpegstructure.SegmentList)
	if !ok {
		return nil, errors.New("exif: unexpected jpeg structure")
	}
	if err := segments.SetExif(ib); err != nil {
		return nil, fmt.Errorf("exif: set segment: %w", err)
	}

	var out bytes.Buffer
	if err := segments.Write(&out); err != nil {
		return nil, fmt.Errorf("exif: write jpeg: %w", err)
	}
	return out.Bytes(), nil
}
