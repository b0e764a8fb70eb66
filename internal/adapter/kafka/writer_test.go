package kafka

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
	orbgeojson "github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	reportDate := time.Date(2024, time.November, 20, 0, 0, 0, 0, time.UTC)

	f := orbgeojson.NewFeature(orb.Point{2.3522, 48.8566})
	f.Properties = orbgeojson.Properties{
		"event":     "Protest",
		"summary":   "Protest activity reported in Paris.",
		"timestamp": "2024-11-20",
		"tone":      3.2,
	}

	msg, err := serializeToMessage(reportDate, 0, f)
	require.NoError(t, err)

	assert.Equal(t, []byte("20241120"), msg.Key)
	assert.Contains(t, string(msg.Value), `"type":"Feature"`)
	assert.Contains(t, string(msg.Value), `"Protest"`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "report_date", msg.Headers[0].Key)
	assert.Equal(t, []byte("2024-11-20"), msg.Headers[0].Value)
	assert.Equal(t, "event_type", msg.Headers[1].Key)
	assert.Equal(t, []byte("Protest"), msg.Headers[1].Value)
}

func TestSerializeToMessage_MissingEventProperty(t *testing.T) {
	reportDate := time.Date(2024, time.November, 20, 0, 0, 0, 0, time.UTC)

	f := orbgeojson.NewFeature(orb.Point{0, 0})
	msg, err := serializeToMessage(reportDate, 3, f)
	require.NoError(t, err)
	assert.Equal(t, []byte(""), msg.Headers[1].Value, "absent event type yields an empty header, not a panic")
}
