package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNew_AllProviders(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := New(name, Credentials{APIKey: "k"})
			require.NoError(t, err)
			assert.Equal(t, name, p.Name())
		})
	}
}

func TestNew_CaseInsensitive(t *testing.T) {
	p, err := New("  Google ", Credentials{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, Google, p.Name())
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New("bing", Credentials{APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNew_MissingKey(t *testing.T) {
	_, err := New(Mapbox, Credentials{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an API key")
}

func TestNames_ReturnsCopy(t *testing.T) {
	names := Names()
	names[0] = "mutated"
	assert.Equal(t, Google, Names()[0])
}

func TestRequiresKey(t *testing.T) {
	assert.True(t, RequiresKey(Google))
	assert.False(t, RequiresKey("Nominatim"))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(" OpenCage "))
	assert.False(t, Supported("bing"))
}

func TestNewLimiter(t *testing.T) {
	assert.InDelta(t, 1.0, float64(NewLimiter("Nominatim", 0).Limit()), 0.0001)
	assert.Equal(t, rate.Inf, NewLimiter(Google, 0).Limit())
	assert.InDelta(t, 5.0, float64(NewLimiter(Nominatim, 5).Limit()), 0.0001)
	assert.Equal(t, 5, NewLimiter(Google, 5).Burst())
	assert.Equal(t, 1, NewLimiter(Google, 0.5).Burst())
}
