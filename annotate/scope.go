package annotate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Project is a scope record. `Permission` is the single permission label
// the current user holds for it, as sent by the gateway; `Rank` is its
// parsed form.
type Project struct {
	Id         string      `json:"id"`
	Name       string      `json:"name"`
	Permission string      `json:"permission,omitempty"`
	Rank       ProjectRank `json:"-"`
	Country    string      `json:"country,omitempty"`
	Position   Position    `json:"position"`
	Visible    bool        `json:"visible"`
	GeojsonRef string      `json:"geojson,omitempty"`
}

// Network is a scope record. `Level` is the numeric permission level the
// current user holds for it; `Permission` mirrors the level as a label
// for legacy consumers.
type Network struct {
	Id           string       `json:"id"`
	Name         string       `json:"name"`
	Level        NetworkLevel `json:"level"`
	Permission   string       `json:"permission,omitempty"`
	Active       bool         `json:"active"`
	CreatedBy    string       `json:"created_by,omitempty"`
	CreationDate string       `json:"creation_date,omitempty"`
}

func NormalizeProject(record json.RawMessage) (*Project, error) {
	var raw struct {
		Id         flexString `json:"id"`
		Name       string     `json:"name"`
		Permission string     `json:"permission"`
		Country    string     `json:"country"`
		Latitude   flexFloat  `json:"latitude"`
		Longitude  flexFloat  `json:"longitude"`
		Visible    *bool      `json:"visible"`
		GeojsonRef string     `json:"geojson"`
	}
	if err := json.Unmarshal(record, &raw); err != nil {
		return nil, fmt.Errorf("unrecognized project record: %s", err)
	}
	if raw.Id == "" {
		return nil, fmt.Errorf("project record missing id")
	}
	project := &Project{
		Id:         string(raw.Id),
		Name:       raw.Name,
		Permission: raw.Permission,
		Rank:       ParseProjectRank(raw.Permission),
		Country:    raw.Country,
		Position: Position{
			Latitude:  float64(raw.Latitude),
			Longitude: float64(raw.Longitude),
		},
		// visible unless the gateway says otherwise
		Visible:    raw.Visible == nil || *raw.Visible,
		GeojsonRef: raw.GeojsonRef,
	}
	if strings.TrimSpace(project.Name) == "" {
		project.Name = DefaultEntityName(KindProject)
	}
	return project, nil
}

func NormalizeNetwork(record json.RawMessage) (*Network, error) {
	var raw struct {
		Id           flexString      `json:"id"`
		Name         string          `json:"name"`
		Level        json.RawMessage `json:"level"`
		Permission   string          `json:"permission"`
		Active       *bool           `json:"active"`
		CreatedBy    string          `json:"created_by"`
		CreationDate string          `json:"creation_date"`
	}
	if err := json.Unmarshal(record, &raw); err != nil {
		return nil, fmt.Errorf("unrecognized network record: %s", err)
	}
	if raw.Id == "" {
		return nil, fmt.Errorf("network record missing id")
	}
	// a level that is not numeric falls back to the permission label
	var levelValue *float64
	if len(raw.Level) != 0 && string(raw.Level) != "null" {
		var f flexFloat
		if err := json.Unmarshal(raw.Level, &f); err == nil {
			v := float64(f)
			levelValue = &v
		}
	}
	level := ParseNetworkLevel(levelValue, raw.Permission)
	network := &Network{
		Id:           string(raw.Id),
		Name:         raw.Name,
		Level:        level,
		Permission:   level.Label(),
		Active:       raw.Active == nil || *raw.Active,
		CreatedBy:    raw.CreatedBy,
		CreationDate: raw.CreationDate,
	}
	if strings.TrimSpace(network.Name) == "" {
		network.Name = DefaultEntityName(KindNetwork)
	}
	return network, nil
}
