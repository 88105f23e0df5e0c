package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>  Water Purification Guide  </title>
  <style>body { color: red; }</style>
  <script>alert("nope");</script>
</head>
<body>
  <header>Site chrome</header>
  <nav>Home | About</nav>
  <main>
    <h1>Purifying water</h1>
    <p>Boil water for at least one minute.</p>
    <p>Filter
       cloudy water first.</p>
  </main>
  <footer>Copyright notice</footer>
  <noscript>Enable JS</noscript>
</body>
</html>`

func TestFetchCleansDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "CognitEdgeScraper")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	doc, err := New().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Water Purification Guide", doc.Title)
	assert.Equal(t, "Purifying water Boil water for at least one minute. Filter cloudy water first.", doc.Text)
	assert.Equal(t, srv.URL, doc.URL)
}

func TestFetchTitleFallsBackToURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no title here</p></body></html>"))
	}))
	defer srv.Close()

	doc, err := New().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL, doc.Title)
}

func TestFetchFollowsRedirects(t *testing.T) {
	var final string
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>Landed</title></head><body>done</body></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	final = srv.URL + "/final"

	doc, err := New().Fetch(context.Background(), srv.URL+"/start")
	require.NoError(t, err)
	assert.Equal(t, final, doc.URL)
	assert.Equal(t, "Landed", doc.Title)
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New().Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}
