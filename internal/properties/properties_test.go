package properties

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	thresholds, err := Thresholds()
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 40, 60, 80}, thresholds)
	assert.Equal(t, "MOD13A1", VegetationSource())
	lo, hi := Scale()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 100.0, hi)
	assert.Equal(t, filepath.Join(".", "data", "countries.geojson"), CountriesPath())
}

func TestThresholdsFromList(t *testing.T) {
	viper.Set("thresholds", []any{10, 30, 50, 70})
	t.Cleanup(func() { viper.Set("thresholds", "20,40,60,80") })

	thresholds, err := Thresholds()
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 30, 50, 70}, thresholds)
}

func TestSentinelCredentialsArePaired(t *testing.T) {
	viper.Set("sentinel_client_ids", "a, b,c")
	viper.Set("sentinel_client_secrets", "1,2")
	t.Cleanup(func() {
		viper.Set("sentinel_client_ids", "")
		viper.Set("sentinel_client_secrets", "")
	})

	assert.Equal(t, []Credential{{"a", "1"}, {"b", "2"}}, SentinelCredentials())
}
