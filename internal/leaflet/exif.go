package leaflet

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
)

// exifMeta is the slice of EXIF the analyzer cares about. Photos without
// EXIF (PNG uploads, strippers) get the zero value: no datetime, upright.
type exifMeta struct {
	hasDatetime bool
	orientation int
}

func readExifMeta(photo []byte) exifMeta {
	meta := exifMeta{orientation: 1}

	x, err := exif.Decode(bytes.NewReader(photo))
	if err != nil {
		return meta
	}

	if tag, err := x.Get(exif.DateTimeOriginal); err == nil && tag != nil {
		if s, err := tag.StringVal(); err == nil && s != "" {
			meta.hasDatetime = true
		}
	}
	if !meta.hasDatetime {
		if tag, err := x.Get(exif.DateTime); err == nil && tag != nil {
			if s, err := tag.StringVal(); err == nil && s != "" {
				meta.hasDatetime = true
			}
		}
	}

	if tag, err := x.Get(exif.Orientation); err == nil && tag != nil {
		if v, err := tag.Int(0); err == nil && v >= 1 && v <= 8 {
			meta.orientation = v
		}
	}

	return meta
}

// orientationOK reports whether the raw orientation tag does not indicate a
// pending un-rotated flip. Values 3, 6 and 8 mean the pixels are stored
// rotated and a viewer that ignores EXIF would show the leaflet sideways or
// upside down.
func (m exifMeta) orientationOK() bool {
	switch m.orientation {
	case 3, 6, 8:
		return false
	}
	return true
}
