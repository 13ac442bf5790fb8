package resolution

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func newImageServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	img := pngBytes(t, 640, 480)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch r.URL.Path {
		case "/photo.png":
			assert.Equal(t, "Mozilla/5.0", r.UserAgent())
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(img)
		case "/text":
			_, _ = w.Write([]byte("not an image"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckOne_Success(t *testing.T) {
	srv := newImageServer(t, nil)

	res := New(Config{}, nil).CheckOne(context.Background(), " "+srv.URL+"/photo.png ")

	assert.True(t, res.OK())
	assert.Equal(t, 640, res.Width)
	assert.Equal(t, 480, res.Height)
	assert.Equal(t, srv.URL+"/photo.png", res.URL)
}

func TestCheckOne_InvalidURLMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	newImageServer(t, &hits)

	c := New(Config{}, nil)
	for _, u := range []string{"", "ftp://x/y.png", "www.example.com/a.png", "nan"} {
		res := c.CheckOne(context.Background(), u)
		assert.Equal(t, StatusInvalidURL, res.Status, u)
		assert.Zero(t, res.Width)
	}
	assert.Equal(t, int32(0), hits.Load())
}

func TestCheckOne_HTTPError(t *testing.T) {
	srv := newImageServer(t, nil)

	res := New(Config{}, nil).CheckOne(context.Background(), srv.URL+"/missing.png")

	assert.False(t, res.OK())
	assert.Contains(t, res.Status, "404")
}

func TestCheckOne_NotAnImage(t *testing.T) {
	srv := newImageServer(t, nil)

	res := New(Config{}, nil).CheckOne(context.Background(), srv.URL+"/text")

	assert.False(t, res.OK())
	assert.Contains(t, res.Status, "cannot identify image")
}

func TestCheck_PreservesOrder(t *testing.T) {
	srv := newImageServer(t, nil)
	urls := []string{srv.URL + "/photo.png", "bad", srv.URL + "/missing.png", srv.URL + "/photo.png"}

	var (
		mu    sync.Mutex
		ticks []int
	)
	results := New(Config{Workers: 3}, nil).Check(context.Background(), urls, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		ticks = append(ticks, done)
		assert.Equal(t, 4, total)
	})

	require.Len(t, results, 4)
	assert.True(t, results[0].OK())
	assert.Equal(t, StatusInvalidURL, results[1].Status)
	assert.False(t, results[2].OK())
	assert.True(t, results[3].OK())
	assert.Equal(t, []int{1, 2, 3, 4}, ticks)
}
