package annotate

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// package `annotate` is the client-resident core of the karstmap
// collaborative annotation tool: entity caches, local mirrors,
// optimistic mutation, and scoped authorization.
// The map layer and all chrome (modals, menus, toasts) live outside
// this package and consume it through Registry and Renderer.

// EntityKind identifies one server-side collection.
// Each kind owns exactly one cache and one mirror.
type EntityKind string

const (
	KindProject         EntityKind = "project"
	KindNetwork         EntityKind = "network"
	KindStation         EntityKind = "station"
	KindSurfaceStation  EntityKind = "surface_station"
	KindLandmark        EntityKind = "landmark"
	KindPointOfInterest EntityKind = "poi"
	KindGpsTrack        EntityKind = "gps_track"
)

// display name applied when the server record carries none
func DefaultEntityName(kind EntityKind) string {
	switch kind {
	case KindStation:
		return "Unnamed Station"
	case KindSurfaceStation:
		return "Unnamed Surface Station"
	case KindLandmark:
		return "Unnamed Landmark"
	case KindPointOfInterest:
		return "Unnamed Point of Interest"
	case KindGpsTrack:
		return "Unnamed Track"
	case KindProject:
		return "Unnamed Project"
	case KindNetwork:
		return "Unnamed Network"
	default:
		return "Unnamed"
	}
}

// Position is a WGS84 coordinate in decimal degrees.
// comparable
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (self Position) String() string {
	return fmt.Sprintf("(%f, %f)", self.Latitude, self.Longitude)
}

// Id tags client-originated work: callback registrations and mutation
// operations. Server entity ids stay opaque strings.
// comparable
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

func (self Id) String() string {
	return encodeUuid(self)
}

func (self *Id) MarshalJSON() ([]byte, error) {
	var buf [16]byte
	copy(buf[0:16], self[0:16])
	var buff bytes.Buffer
	buff.WriteByte('"')
	buff.WriteString(encodeUuid(buf))
	buff.WriteByte('"')
	b := buff.Bytes()
	return b, nil
}

func (self *Id) UnmarshalJSON(src []byte) error {
	if len(src) != 38 {
		return fmt.Errorf("invalid length for UUID: %v", len(src))
	}
	buf, err := parseUuid(string(src[1 : len(src)-1]))
	if err != nil {
		return err
	}
	*self = buf
	return nil
}

func parseUuid(src string) (dst [16]byte, err error) {
	switch len(src) {
	case 36:
		src = src[0:8] + src[9:13] + src[14:18] + src[19:23] + src[24:]
	case 32:
		// dashes already stripped, assume valid
	default:
		// assume invalid.
		return dst, fmt.Errorf("cannot parse UUID %v", src)
	}

	buf, err := hex.DecodeString(src)
	if err != nil {
		return dst, err
	}

	copy(dst[:], buf)
	return dst, err
}

func encodeUuid(src [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", src[0:4], src[4:6], src[6:8], src[8:10], src[10:16])
}
