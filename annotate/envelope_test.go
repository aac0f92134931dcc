package annotate

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestParseCollectionEnvelopeBareArray(t *testing.T) {
	envelope := ParseCollectionEnvelope([]byte(`[{"id": 1}, {"id": 2}]`))
	assert.Equal(t, EnvelopeBareArray, envelope.Variant)
	assert.Equal(t, 2, len(envelope.Records))
}

func TestParseCollectionEnvelopeData(t *testing.T) {
	envelope := ParseCollectionEnvelope([]byte(`{"data": [{"id": "a"}]}`))
	assert.Equal(t, EnvelopeData, envelope.Variant)
	assert.Equal(t, 1, len(envelope.Records))
}

func TestParseCollectionEnvelopeResults(t *testing.T) {
	envelope := ParseCollectionEnvelope([]byte(`{"results": [{"id": "a"}, {"id": "b"}, {"id": "c"}]}`))
	assert.Equal(t, EnvelopeResults, envelope.Variant)
	assert.Equal(t, 3, len(envelope.Records))
}

func TestParseCollectionEnvelopeFeatureCollection(t *testing.T) {
	body := `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [6.0, 46.0]},
				"properties": {"id": "s1", "name": "Entrance"}
			}
		]
	}`
	envelope := ParseCollectionEnvelope([]byte(body))
	assert.Equal(t, EnvelopeFeatureCollection, envelope.Variant)
	assert.Equal(t, 1, len(envelope.Records))
	assert.NotEqual(t, nil, envelope.FeatureCollection)
	assert.Equal(t, 1, len(envelope.FeatureCollection.Features))
}

func TestParseCollectionEnvelopeUnrecognized(t *testing.T) {
	for _, body := range []string{
		``,
		`null`,
		`42`,
		`"collection"`,
		`{"items": [{"id": "a"}]}`,
		`{"type": "Feature"}`,
		`not json at all`,
	} {
		envelope := ParseCollectionEnvelope([]byte(body))
		assert.Equal(t, EnvelopeUnrecognized, envelope.Variant)
		// fails closed
		assert.Equal(t, 0, len(envelope.Records))
	}
}

func TestParseCollectionEnvelopeEmptyCollections(t *testing.T) {
	// empty but recognized shapes stay recognized
	assert.Equal(t, EnvelopeBareArray, ParseCollectionEnvelope([]byte(`[]`)).Variant)
	assert.Equal(t, EnvelopeData, ParseCollectionEnvelope([]byte(`{"data": []}`)).Variant)
	assert.Equal(t, EnvelopeResults, ParseCollectionEnvelope([]byte(`{"results": []}`)).Variant)
}

func TestParseRecordEnvelope(t *testing.T) {
	// under a data key
	record := parseRecordEnvelope([]byte(`{"data": {"id": "a", "name": "x"}}`))
	assert.Equal(t, `{"id": "a", "name": "x"}`, string(record))

	// bare record
	record = parseRecordEnvelope([]byte(`{"id": "a"}`))
	assert.Equal(t, `{"id": "a"}`, string(record))
}
