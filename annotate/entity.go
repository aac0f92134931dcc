package annotate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Entity is the canonical client-side shape shared by stations, surface
// stations, landmarks and points of interest. The owning scope reference
// (ProjectId for subsurface-station-like kinds, NetworkId for
// network-scoped kinds) is set once at load/create time and determines
// which rank table governs access.
type Entity struct {
	Id           string     `json:"id"`
	Kind         EntityKind `json:"kind"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Position     Position   `json:"position"`
	ProjectId    string     `json:"project,omitempty"`
	NetworkId    string     `json:"network,omitempty"`
	CreatedBy    string     `json:"created_by,omitempty"`
	CreationDate string     `json:"creation_date,omitempty"`
}

// GpsTrack is a read-only collection entry. No mutation operations.
type GpsTrack struct {
	Id           string `json:"id"`
	Name         string `json:"name"`
	FileRef      string `json:"file"`
	ContentHash  string `json:"hash"`
	CreatedBy    string `json:"created_by,omitempty"`
	CreationDate string `json:"creation_date,omitempty"`
}

// flexString decodes a JSON string or number. The gateway is not
// consistent about id field types across kinds.
type flexString string

func (self *flexString) UnmarshalJSON(src []byte) error {
	if len(src) == 0 || string(src) == "null" {
		*self = ""
		return nil
	}
	if src[0] == '"' {
		var s string
		if err := json.Unmarshal(src, &s); err != nil {
			return err
		}
		*self = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(src, &n); err != nil {
		return err
	}
	*self = flexString(n.String())
	return nil
}

// flexFloat decodes a JSON number or a numeric string.
type flexFloat float64

func (self *flexFloat) UnmarshalJSON(src []byte) error {
	if len(src) == 0 || string(src) == "null" {
		*self = 0
		return nil
	}
	s := string(src)
	if src[0] == '"' {
		if err := json.Unmarshal(src, &s); err != nil {
			return err
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*self = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*self = flexFloat(f)
	return nil
}

type rawEntityRecord struct {
	Id           flexString `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Latitude     flexFloat  `json:"latitude"`
	Longitude    flexFloat  `json:"longitude"`
	Project      flexString `json:"project"`
	Network      flexString `json:"network"`
	CreatedBy    string     `json:"created_by"`
	CreationDate string     `json:"creation_date"`
}

// NormalizeEntity maps one raw gateway record to the canonical shape.
// Accepted record shapes are a flat object with latitude/longitude
// fields, or a GeoJSON feature whose properties carry the flat fields.
// Missing names resolve to the kind default. Never panics.
func NormalizeEntity(kind EntityKind, record json.RawMessage) (*Entity, error) {
	if isGeojsonFeature(record) {
		return normalizeFeature(kind, record)
	}

	var raw rawEntityRecord
	if err := json.Unmarshal(record, &raw); err != nil {
		return nil, fmt.Errorf("unrecognized record: %s", err)
	}
	if raw.Id == "" {
		return nil, fmt.Errorf("record missing id")
	}

	entity := &Entity{
		Id:           string(raw.Id),
		Kind:         kind,
		Name:         raw.Name,
		Description:  raw.Description,
		Position: Position{
			Latitude:  float64(raw.Latitude),
			Longitude: float64(raw.Longitude),
		},
		ProjectId:    string(raw.Project),
		NetworkId:    string(raw.Network),
		CreatedBy:    raw.CreatedBy,
		CreationDate: raw.CreationDate,
	}
	applyEntityDefaults(entity)
	return entity, nil
}

func normalizeFeature(kind EntityKind, record json.RawMessage) (*Entity, error) {
	feature, err := geojson.UnmarshalFeature(record)
	if err != nil {
		return nil, err
	}

	entity := &Entity{
		Kind: kind,
	}
	if feature.ID != nil {
		entity.Id = fmt.Sprintf("%v", feature.ID)
	}
	if id := featureProperty(feature, "id"); id != "" {
		entity.Id = id
	}
	if entity.Id == "" {
		return nil, fmt.Errorf("feature missing id")
	}
	entity.Name = featureProperty(feature, "name")
	entity.Description = featureProperty(feature, "description")
	entity.ProjectId = featureProperty(feature, "project")
	entity.NetworkId = featureProperty(feature, "network")
	entity.CreatedBy = featureProperty(feature, "created_by")
	entity.CreationDate = featureProperty(feature, "creation_date")

	if feature.Geometry != nil {
		entity.Position = positionOfGeometry(feature.Geometry)
	}

	applyEntityDefaults(entity)
	return entity, nil
}

func applyEntityDefaults(entity *Entity) {
	if strings.TrimSpace(entity.Name) == "" {
		entity.Name = DefaultEntityName(entity.Kind)
	}
}

func isGeojsonFeature(record json.RawMessage) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(record, &probe); err != nil {
		return false
	}
	return probe.Type == "Feature"
}

func featureProperty(feature *geojson.Feature, key string) string {
	value, ok := feature.Properties[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// integral ids come through json as float64
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// positionOfGeometry takes the point itself, or the bound center for
// non-point geometries (tracks, areas).
func positionOfGeometry(geometry orb.Geometry) Position {
	switch g := geometry.(type) {
	case orb.Point:
		return Position{
			Latitude:  g.Lat(),
			Longitude: g.Lon(),
		}
	default:
		center := geometry.Bound().Center()
		return Position{
			Latitude:  center.Lat(),
			Longitude: center.Lon(),
		}
	}
}

// NormalizeGpsTrack maps one raw track record. Tracks are read-only and
// carry a remote file reference with a content hash.
func NormalizeGpsTrack(record json.RawMessage) (*GpsTrack, error) {
	var raw struct {
		Id           flexString `json:"id"`
		Name         string     `json:"name"`
		FileRef      string     `json:"file"`
		ContentHash  string     `json:"hash"`
		CreatedBy    string     `json:"created_by"`
		CreationDate string     `json:"creation_date"`
	}
	if err := json.Unmarshal(record, &raw); err != nil {
		return nil, fmt.Errorf("unrecognized track record: %s", err)
	}
	if raw.Id == "" {
		return nil, fmt.Errorf("track record missing id")
	}
	track := &GpsTrack{
		Id:           string(raw.Id),
		Name:         raw.Name,
		FileRef:      raw.FileRef,
		ContentHash:  raw.ContentHash,
		CreatedBy:    raw.CreatedBy,
		CreationDate: raw.CreationDate,
	}
	if strings.TrimSpace(track.Name) == "" {
		track.Name = DefaultEntityName(KindGpsTrack)
	}
	return track, nil
}

// FeatureCollectionOf builds the feature-collection pass-through shape
// handed to the map layer. Scope and audit fields ride in properties.
func FeatureCollectionOf(entities []*Entity) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, entity := range entities {
		feature := geojson.NewFeature(orb.Point{entity.Position.Longitude, entity.Position.Latitude})
		feature.Properties = geojson.Properties{
			"id":   entity.Id,
			"kind": string(entity.Kind),
			"name": entity.Name,
		}
		if entity.Description != "" {
			feature.Properties["description"] = entity.Description
		}
		if entity.ProjectId != "" {
			feature.Properties["project"] = entity.ProjectId
		}
		if entity.NetworkId != "" {
			feature.Properties["network"] = entity.NetworkId
		}
		if entity.CreatedBy != "" {
			feature.Properties["created_by"] = entity.CreatedBy
		}
		if entity.CreationDate != "" {
			feature.Properties["creation_date"] = entity.CreationDate
		}
		fc.Append(feature)
	}
	return fc
}
