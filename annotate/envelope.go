package annotate

import (
	"bytes"
	"encoding/json"

	"github.com/paulmach/orb/geojson"
)

// The gateway wraps collection responses in one of four envelopes
// depending on the endpoint's vintage. The parser enumerates exactly the
// accepted shapes and yields a typed unrecognized variant on anything
// else, so render paths can fail closed on an empty collection.

type EnvelopeVariant string

const (
	EnvelopeBareArray         EnvelopeVariant = "array"
	EnvelopeData              EnvelopeVariant = "data"
	EnvelopeResults           EnvelopeVariant = "results"
	EnvelopeFeatureCollection EnvelopeVariant = "feature_collection"
	EnvelopeUnrecognized      EnvelopeVariant = "unrecognized"
)

type CollectionEnvelope struct {
	Variant EnvelopeVariant
	Records []json.RawMessage
	// set for the feature collection variant only
	FeatureCollection *geojson.FeatureCollection
}

// ParseCollectionEnvelope inspects `body` against the accepted shapes:
// a bare array, `{"data": [...]}`, `{"results": [...]}`, or a GeoJSON
// feature collection. Records of the feature collection variant are the
// individual features re-marshalled one per record.
func ParseCollectionEnvelope(body []byte) *CollectionEnvelope {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &CollectionEnvelope{
			Variant: EnvelopeUnrecognized,
			Records: []json.RawMessage{},
		}
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err == nil {
			return &CollectionEnvelope{
				Variant: EnvelopeBareArray,
				Records: records,
			}
		}
		return &CollectionEnvelope{
			Variant: EnvelopeUnrecognized,
			Records: []json.RawMessage{},
		}
	}

	var probe struct {
		Type     string            `json:"type"`
		Data     []json.RawMessage `json:"data"`
		Results  []json.RawMessage `json:"results"`
		Features json.RawMessage   `json:"features"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return &CollectionEnvelope{
			Variant: EnvelopeUnrecognized,
			Records: []json.RawMessage{},
		}
	}

	if probe.Type == "FeatureCollection" && probe.Features != nil {
		fc, err := geojson.UnmarshalFeatureCollection(trimmed)
		if err != nil {
			return &CollectionEnvelope{
				Variant: EnvelopeUnrecognized,
				Records: []json.RawMessage{},
			}
		}
		records := make([]json.RawMessage, 0, len(fc.Features))
		for _, feature := range fc.Features {
			featureBytes, err := feature.MarshalJSON()
			if err != nil {
				continue
			}
			records = append(records, json.RawMessage(featureBytes))
		}
		return &CollectionEnvelope{
			Variant:           EnvelopeFeatureCollection,
			Records:           records,
			FeatureCollection: fc,
		}
	}

	if probe.Data != nil {
		return &CollectionEnvelope{
			Variant: EnvelopeData,
			Records: probe.Data,
		}
	}
	if probe.Results != nil {
		return &CollectionEnvelope{
			Variant: EnvelopeResults,
			Records: probe.Results,
		}
	}

	return &CollectionEnvelope{
		Variant: EnvelopeUnrecognized,
		Records: []json.RawMessage{},
	}
}

// parseRecordEnvelope unwraps a write response: the record under a
// `data` key or the bare record.
func parseRecordEnvelope(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &probe); err == nil && probe.Data != nil {
		return probe.Data
	}
	return json.RawMessage(trimmed)
}
