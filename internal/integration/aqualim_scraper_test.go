package integration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/abelzeko/aqualim-harvester/internal/config"
	"github.com/abelzeko/aqualim-harvester/internal/entities"
)

func newTestScraper(baseURL string) *AqualimScraper {
	return NewAqualimScraper(&config.Config{
		BaseURL:        baseURL,
		ContactName:    "Test Harvester",
		ContactEmail:   "test@example.org",
		ContactPurpose: "tests",
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop().Sugar())
}

// mockHTMLServer creates a test server that serves a fixed HTML response
func mockHTMLServer(html string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, html)
	}))
}

const directoryHTML = `
<!DOCTYPE html>
<html>
<body>
<table>
<tbody>
<tr><th>Code</th><th>Station</th><th>Rivière</th><th>X</th><th>Y</th></tr>
<tr><td>6526</td><td><a href="/stations/6526.do">Monteneau</a></td><td>AMBLEVE</td><td>255410,5</td><td>130221,0</td></tr>
<tr><td>2536</td><td><a href="/stations/2536.do">Gendron</a></td><td>LESSE</td><td>186512,0</td><td>95874,3</td></tr>
<tr><td>6526</td><td><a href="/stations/6526bis.do">Monteneau (doublon)</a></td><td>AMBLEVE</td><td>0</td><td>0</td></tr>
<tr><td colspan="5">Légende</td></tr>
</tbody>
</table>
</body>
</html>`

func TestFetchStationDirectory(t *testing.T) {
	server := mockHTMLServer(directoryHTML)
	defer server.Close()

	scraper := newTestScraper(server.URL)
	stations, err := scraper.FetchStationDirectory(context.Background())
	if err != nil {
		t.Fatalf("Failed to fetch station directory: %v", err)
	}

	if len(stations) != 2 {
		t.Fatalf("Expected 2 stations (duplicate collapsed), got %d", len(stations))
	}

	seen := make(map[string]bool)
	for _, st := range stations {
		if seen[st.Code] {
			t.Errorf("Duplicate station code %s in result", st.Code)
		}
		seen[st.Code] = true
	}

	first := stations[0]
	if first.Code != "6526" || first.Name != "Monteneau" || first.River != "AMBLEVE" {
		t.Errorf("Unexpected first station: %+v", first)
	}
	if first.PageURL != server.URL+"/stations/6526.do" {
		t.Errorf("Expected absolute page URL, got %s", first.PageURL)
	}
	if first.X != 255410.5 || first.Y != 130221.0 {
		t.Errorf("Unexpected coordinates: x=%v y=%v", first.X, first.Y)
	}
}

func TestFetchStationDirectoryNoTable(t *testing.T) {
	server := mockHTMLServer(`<html><body><p>Maintenance en cours</p></body></html>`)
	defer server.Close()

	scraper := newTestScraper(server.URL)
	_, err := scraper.FetchStationDirectory(context.Background())
	if !errors.Is(err, entities.ErrParse) {
		t.Fatalf("Expected parse error for table-less page, got %v", err)
	}
}

func TestFetchStationDirectoryServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	scraper := newTestScraper(server.URL)
	_, err := scraper.FetchStationDirectory(context.Background())
	if !errors.Is(err, entities.ErrNetwork) {
		t.Fatalf("Expected network error for status 500, got %v", err)
	}
}

const stationPageHTML = `
<!DOCTYPE html>
<html>
<body>
<h1>Station Monteneau</h1>
<form action="/stations/identification.do" method="post">
	<input type="text" name="nom" />
	<input type="text" name="email" />
	<input type="text" name="usage" />
	<input type="submit" value="Valider" />
</form>
</body>
</html>`

const authorizedPageHTML = `
<!DOCTYPE html>
<html>
<body>
<p>Période : 01/2015 - 12/2016</p>
<a href="/stations/exportation.do?code=6526">Exporter les données</a>
</body>
</html>`

func TestOpenStationSession(t *testing.T) {
	var submittedForm map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/stations/6526.do", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, stationPageHTML)
	})
	mux.HandleFunc("/stations/identification.do", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		r.ParseForm()
		submittedForm = map[string]string{
			"nom":   r.PostFormValue("nom"),
			"email": r.PostFormValue("email"),
			"usage": r.PostFormValue("usage"),
		}
		io.WriteString(w, authorizedPageHTML)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	scraper := newTestScraper(server.URL)
	station := entities.Station{Code: "6526", Name: "Monteneau", River: "AMBLEVE", PageURL: server.URL + "/stations/6526.do"}

	sess, err := scraper.OpenStationSession(context.Background(), station)
	if err != nil {
		t.Fatalf("Failed to open station session: %v", err)
	}

	if submittedForm["nom"] != "Test Harvester" || submittedForm["email"] != "test@example.org" {
		t.Errorf("Form was not submitted with configured personalia: %v", submittedForm)
	}

	wantStart := time.Date(2015, time.January, 1, 0, 0, 0, 0, siteZone)
	wantEnd := time.Date(2017, time.January, 1, 0, 0, 0, 0, siteZone)
	if !sess.Period.Start.Equal(wantStart) {
		t.Errorf("Expected period start %s, got %s", wantStart, sess.Period.Start)
	}
	if !sess.Period.End.Equal(wantEnd) {
		t.Errorf("Expected period end %s, got %s", wantEnd, sess.Period.End)
	}
}

func TestOpenStationSessionAccessDenied(t *testing.T) {
	server := mockHTMLServer(`<html><body><h1>Accès non autorisé</h1></body></html>`)
	defer server.Close()

	scraper := newTestScraper(server.URL)
	station := entities.Station{Code: "6526", PageURL: server.URL + "/stations/6526.do"}

	_, err := scraper.OpenStationSession(context.Background(), station)
	if !errors.Is(err, entities.ErrAuthRejected) {
		t.Fatalf("Expected auth error for denied page, got %v", err)
	}
}

func TestOpenStationSessionMissingForm(t *testing.T) {
	server := mockHTMLServer(`<html><body><p>Rien à voir ici</p></body></html>`)
	defer server.Close()

	scraper := newTestScraper(server.URL)
	station := entities.Station{Code: "6526", PageURL: server.URL + "/stations/6526.do"}

	_, err := scraper.OpenStationSession(context.Background(), station)
	if !errors.Is(err, entities.ErrAuthRejected) {
		t.Fatalf("Expected auth error for form-less page, got %v", err)
	}
}

func TestFetchMeasurementTable(t *testing.T) {
	var gotQuery map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/stations/exportation.do", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"code":   q.Get("code"),
			"debut":  q.Get("debut"),
			"fin":    q.Get("fin"),
			"format": q.Get("format"),
		}
		io.WriteString(w, `<table><tr><td>02/01/2015 08:00</td><td>1.23</td><td>45.6</td></tr></table>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	scraper := newTestScraper(server.URL)
	sess := &StationSession{
		Station: entities.Station{Code: "6526"},
		client:  scraper.newClient(),
	}
	chunk := entities.DateRange{
		Start: time.Date(2015, time.January, 1, 0, 0, 0, 0, siteZone),
		End:   time.Date(2016, time.January, 1, 0, 0, 0, 0, siteZone),
	}

	raw, err := scraper.FetchMeasurementTable(context.Background(), sess, chunk)
	if err != nil {
		t.Fatalf("Failed to fetch measurement table: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("Expected a non-empty export body")
	}

	want := map[string]string{"code": "6526", "debut": "01/01/2015", "fin": "01/01/2016", "format": "xls"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("Expected query %s=%s, got %s", k, v, gotQuery[k])
		}
	}
}

func TestFetchMeasurementTableRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	scraper := newTestScraper(server.URL)
	sess := &StationSession{
		Station: entities.Station{Code: "6526"},
		client:  scraper.newClient(),
	}
	chunk := entities.DateRange{
		Start: time.Date(2015, time.January, 1, 0, 0, 0, 0, siteZone),
		End:   time.Date(2016, time.January, 1, 0, 0, 0, 0, siteZone),
	}

	_, err := scraper.FetchMeasurementTable(context.Background(), sess, chunk)
	if !errors.Is(err, entities.ErrRateLimited) {
		t.Fatalf("Expected rate limit error for status 429, got %v", err)
	}
}

func TestParsePeriod(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(authorizedPageHTML))
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}

	period, err := parsePeriod(doc)
	if err != nil {
		t.Fatalf("Failed to parse period: %v", err)
	}
	if period.Start.Year() != 2015 || period.Start.Month() != time.January {
		t.Errorf("Unexpected period start: %s", period.Start)
	}
	// December 2016 is included, so the half-open range ends January 2017.
	if period.End.Year() != 2017 || period.End.Month() != time.January {
		t.Errorf("Unexpected period end: %s", period.End)
	}
}
