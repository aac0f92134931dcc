package annotate

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestNormalizeEntityFlatRecord(t *testing.T) {
	record := json.RawMessage(`{
		"id": "s1",
		"name": "Entrance",
		"description": "main shaft",
		"latitude": 46.0,
		"longitude": 6.0,
		"project": "p1",
		"created_by": "ada",
		"creation_date": "2024-05-01"
	}`)
	entity, err := NormalizeEntity(KindStation, record)
	assert.Equal(t, nil, err)
	assert.Equal(t, "s1", entity.Id)
	assert.Equal(t, KindStation, entity.Kind)
	assert.Equal(t, "Entrance", entity.Name)
	assert.Equal(t, "main shaft", entity.Description)
	assert.Equal(t, Position{Latitude: 46.0, Longitude: 6.0}, entity.Position)
	assert.Equal(t, "p1", entity.ProjectId)
	assert.Equal(t, "", entity.NetworkId)
	assert.Equal(t, "ada", entity.CreatedBy)
}

func TestNormalizeEntityDefaultName(t *testing.T) {
	// no name field resolves to the kind default without throwing
	entity, err := NormalizeEntity(KindLandmark, json.RawMessage(`{"id": "l1", "latitude": 1, "longitude": 2}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, "Unnamed Landmark", entity.Name)

	entity, err = NormalizeEntity(KindStation, json.RawMessage(`{"id": "s1", "name": "   "}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, "Unnamed Station", entity.Name)

	entity, err = NormalizeEntity(KindPointOfInterest, json.RawMessage(`{"id": "poi1"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, "Unnamed Point of Interest", entity.Name)
}

func TestNormalizeEntityFlexFields(t *testing.T) {
	// numeric ids and string coordinates both occur in the wild
	record := json.RawMessage(`{
		"id": 7,
		"latitude": "46.5",
		"longitude": "6.25",
		"project": 12
	}`)
	entity, err := NormalizeEntity(KindStation, record)
	assert.Equal(t, nil, err)
	assert.Equal(t, "7", entity.Id)
	assert.Equal(t, Position{Latitude: 46.5, Longitude: 6.25}, entity.Position)
	assert.Equal(t, "12", entity.ProjectId)
}

func TestNormalizeEntityFeature(t *testing.T) {
	record := json.RawMessage(`{
		"type": "Feature",
		"geometry": {"type": "Point", "coordinates": [6.0, 46.0]},
		"properties": {"id": "s1", "name": "Entrance", "network": "n1"}
	}`)
	entity, err := NormalizeEntity(KindSurfaceStation, record)
	assert.Equal(t, nil, err)
	assert.Equal(t, "s1", entity.Id)
	// geojson positions are lon, lat
	assert.Equal(t, Position{Latitude: 46.0, Longitude: 6.0}, entity.Position)
	assert.Equal(t, "n1", entity.NetworkId)
}

func TestNormalizeEntityRejectsMissingId(t *testing.T) {
	_, err := NormalizeEntity(KindStation, json.RawMessage(`{"name": "x"}`))
	assert.NotEqual(t, nil, err)

	_, err = NormalizeEntity(KindStation, json.RawMessage(`"not an object"`))
	assert.NotEqual(t, nil, err)
}

func TestNormalizeGpsTrack(t *testing.T) {
	record := json.RawMessage(`{
		"id": "t1",
		"name": "Sunday traverse",
		"file": "tracks/t1.gpx",
		"hash": "c0ffee",
		"created_by": "ada"
	}`)
	track, err := NormalizeGpsTrack(record)
	assert.Equal(t, nil, err)
	assert.Equal(t, "t1", track.Id)
	assert.Equal(t, "tracks/t1.gpx", track.FileRef)
	assert.Equal(t, "c0ffee", track.ContentHash)

	// default name
	track, err = NormalizeGpsTrack(json.RawMessage(`{"id": "t2"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, "Unnamed Track", track.Name)
}

func TestNormalizeProjectRecord(t *testing.T) {
	record := json.RawMessage(`{
		"id": "p1",
		"name": "Jura Survey",
		"permission": "read and write",
		"country": "CH",
		"latitude": 46.5,
		"longitude": 6.5
	}`)
	project, err := NormalizeProject(record)
	assert.Equal(t, nil, err)
	assert.Equal(t, "p1", project.Id)
	assert.Equal(t, RankReadAndWrite, project.Rank)
	assert.Equal(t, true, project.Visible)

	// missing permission resolves to unknown
	project, err = NormalizeProject(json.RawMessage(`{"id": "p2"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, RankUnknown, project.Rank)
	assert.Equal(t, "Unnamed Project", project.Name)
}

func TestNormalizeNetworkRecord(t *testing.T) {
	// numeric level
	network, err := NormalizeNetwork(json.RawMessage(`{"id": "n1", "name": "Karst North", "level": 3}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, LevelAdmin, network.Level)
	assert.Equal(t, "ADMIN", network.Permission)

	// label fallback
	network, err = NormalizeNetwork(json.RawMessage(`{"id": "n2", "permission": "read only"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, LevelReadOnly, network.Level)
	assert.Equal(t, "READ_ONLY", network.Permission)

	// malformed level falls back, never errors
	network, err = NormalizeNetwork(json.RawMessage(`{"id": "n3", "level": "high", "permission": "admin"}`))
	assert.Equal(t, nil, err)
	assert.Equal(t, LevelAdmin, network.Level)
}

func TestFeatureCollectionOf(t *testing.T) {
	entities := []*Entity{
		{
			Id:        "s1",
			Kind:      KindStation,
			Name:      "Entrance",
			Position:  Position{Latitude: 46.0, Longitude: 6.0},
			ProjectId: "p1",
		},
	}
	fc := FeatureCollectionOf(entities)
	assert.Equal(t, 1, len(fc.Features))
	feature := fc.Features[0]
	assert.Equal(t, "s1", feature.Properties["id"])
	assert.Equal(t, "p1", feature.Properties["project"])
	assert.Equal(t, 46.0, feature.Point().Lat())
	assert.Equal(t, 6.0, feature.Point().Lon())
}
