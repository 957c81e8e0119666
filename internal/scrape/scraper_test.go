package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quarrydocs/quarry/internal/config"
	"github.com/quarrydocs/quarry/internal/log"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Go Channels Explained</title></head>
<body>
<nav>Home | About | Contact</nav>
<article>
<h1>Go Channels Explained</h1>
<p>Channels are a typed conduit through which you can send and receive values
with the channel operator. They let goroutines synchronize without explicit
locks or condition variables, which keeps concurrent code easy to reason
about in most programs.</p>
<p>By default, sends and receives block until the other side is ready. This
property is what makes unbuffered channels a synchronization primitive and
not just a queue between goroutines.</p>
</article>
<footer>Copyright notice</footer>
</body>
</html>`

func testScraper(t *testing.T) *Scraper {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.Scraper.DelayMs = 0
	s, err := New(cfg, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://example.com/page", wantErr: false},
		{name: "http", url: "http://example.com", wantErr: false},
		{name: "ftp scheme", url: "ftp://example.com/file", wantErr: true},
		{name: "file scheme", url: "file:///etc/passwd", wantErr: true},
		{name: "no host", url: "https://", wantErr: true},
		{name: "relative path", url: "/just/a/path", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestFetch_ExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	page, err := testScraper(t).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if page.URL != srv.URL {
		t.Errorf("page.URL = %q, want %q", page.URL, srv.URL)
	}
	if !strings.Contains(page.Title, "Go Channels Explained") {
		t.Errorf("page.Title = %q, want it to name the article", page.Title)
	}
	if !strings.Contains(page.Text, "typed conduit") {
		t.Errorf("page.Text missing article body; got %q", page.Text)
	}
	if strings.Contains(page.Text, "Home | About") {
		t.Errorf("page.Text contains navigation chrome; got %q", page.Text)
	}
}

func TestFetch_StructuralFallback(t *testing.T) {
	// A page with no article structure: readability finds nothing, the
	// structural pass still yields the list items.
	const sparse = `<html><head><title>Links</title></head><body>
	<ul><li>First useful entry about storage engines</li>
	<li>Second useful entry about query planners</li></ul>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(sparse))
	}))
	defer srv.Close()

	page, err := testScraper(t).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.Contains(page.Text, "storage engines") || !strings.Contains(page.Text, "query planners") {
		t.Errorf("page.Text missing list content; got %q", page.Text)
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := testScraper(t).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Fetch() expected error for 500 response, got nil")
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	if _, err := testScraper(t).Fetch(context.Background(), "ftp://example.com"); err == nil {
		t.Error("Fetch() expected error for non-http URL, got nil")
	}
}

func TestFetch_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head></head><body><script>var x=1;</script></body></html>`))
	}))
	defer srv.Close()

	if _, err := testScraper(t).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("Fetch() expected error for content-free page, got nil")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trims and squeezes", in: "  a\t b  ", want: "a b"},
		{name: "keeps paragraph break", in: "one\n\ntwo", want: "one\n\ntwo"},
		{name: "squeezes blank runs", in: "one\n\n\n\ntwo", want: "one\n\ntwo"},
		{name: "drops trailing blanks", in: "one\n\n", want: "one"},
		{name: "empty", in: "   \n  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := collapseWhitespace(tt.in); got != tt.want {
				t.Errorf("collapseWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
