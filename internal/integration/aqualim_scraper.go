// Package integration handles external service interactions
package integration

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/abelzeko/aqualim-harvester/internal/config"
	"github.com/abelzeko/aqualim-harvester/internal/entities"
)

const (
	directoryPath = "/stations/liste.do"
	exportPath    = "/stations/exportation.do"

	// dateParam is the dd/mm/yyyy format the export form expects.
	dateParam = "02/01/2006"
)

// siteZone is the timezone the website reports in: UTC+1, no DST.
var siteZone = time.FixedZone("UTC+1", 3600)

// deniedRe matches the page served instead of data when access is refused.
var deniedRe = regexp.MustCompile(`Acc&egrave;s non autoris&eacute;|Accès non autorisé`)

// AqualimScraper fetches and parses pages of the Aqualim website.
type AqualimScraper struct {
	baseURL        string
	contactName    string
	contactEmail   string
	contactPurpose string
	requestDelay   time.Duration
	requestTimeout time.Duration
	log            *zap.SugaredLogger
}

// StationSession carries the cookies obtained by submitting the
// personal-data form of one station. It is passed explicitly to every
// download for that station.
type StationSession struct {
	Station entities.Station
	// Period of data the website advertises for this station.
	Period entities.DateRange

	client *resty.Client
}

// NewAqualimScraper creates a scraper configured from cfg.
func NewAqualimScraper(cfg *config.Config, log *zap.SugaredLogger) *AqualimScraper {
	return &AqualimScraper{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		contactName:    cfg.ContactName,
		contactEmail:   cfg.ContactEmail,
		contactPurpose: cfg.ContactPurpose,
		requestDelay:   cfg.RequestDelay,
		requestTimeout: cfg.RequestTimeout,
		log:            log,
	}
}

// newClient returns a fresh resty client with its own cookie jar, so
// session cookies never leak between stations.
func (s *AqualimScraper) newClient() *resty.Client {
	return resty.New().
		SetBaseURL(s.baseURL).
		SetTimeout(s.requestTimeout).
		SetHeader("User-Agent", "aqualim-harvester/1.0")
}

// courtesy pauses between requests so the webserver is not hammered.
func (s *AqualimScraper) courtesy() {
	time.Sleep(s.requestDelay)
}

// FetchStationDirectory retrieves the page listing all Aqualim stations and
// extracts one Station per table row. Duplicate codes are collapsed, first
// occurrence wins.
func (s *AqualimScraper) FetchStationDirectory(ctx context.Context) ([]entities.Station, error) {
	s.log.Infow("Fetching station directory", "url", s.baseURL+directoryPath)
	s.courtesy()

	res, err := s.newClient().R().SetContext(ctx).Get(directoryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch station directory: %v", entities.ErrNetwork, err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: station directory returned status %d", entities.ErrNetwork, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: parse station directory: %v", entities.ErrParse, err)
	}
	if doc.Find("table").Length() == 0 {
		return nil, fmt.Errorf("%w: station directory has no table", entities.ErrParse)
	}

	var stations []entities.Station
	seen := make(map[string]bool)
	rowCount := 0

	doc.Find("table tbody tr").Each(func(index int, row *goquery.Selection) {
		rowCount++
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		code := strings.TrimSpace(cells.Eq(0).Text())
		if code == "" {
			return
		}
		if seen[code] {
			s.log.Warnw("Duplicate station code in directory, keeping first", "code", code)
			return
		}

		// The name cell carries the link to the station detail page.
		nameCell := cells.Eq(1)
		name := strings.TrimSpace(nameCell.Text())
		href := nameCell.Find("a").AttrOr("href", "")

		river := strings.TrimSpace(cells.Eq(2).Text())
		x := parseCoordinate(cells.Eq(3).Text())
		y := parseCoordinate(cells.Eq(4).Text())

		seen[code] = true
		stations = append(stations, entities.Station{
			Code:    code,
			Name:    name,
			River:   river,
			X:       x,
			Y:       y,
			PageURL: s.resolveURL(href),
		})
	})

	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: no stations found in directory (%d rows scanned)", entities.ErrParse, rowCount)
	}

	s.log.Infow("Parsed station directory", "rows", rowCount, "stations", len(stations))
	return stations, nil
}

// OpenStationSession fetches the station detail page and submits the
// personal-data form that unlocks the export links. The returned session
// holds the cookies and the advertised data period.
func (s *AqualimScraper) OpenStationSession(ctx context.Context, station entities.Station) (*StationSession, error) {
	s.log.Infow("Opening station session", "code", station.Code, "name", station.Name)
	s.courtesy()

	client := s.newClient()
	res, err := client.R().SetContext(ctx).Get(station.PageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch station page %s: %v", entities.ErrNetwork, station.Code, err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: station page %s returned status %d", entities.ErrNetwork, station.Code, res.StatusCode())
	}

	body := res.String()
	if deniedRe.MatchString(body) {
		return nil, fmt.Errorf("%w: station page %s", entities.ErrAuthRejected, station.Code)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse station page %s: %v", entities.ErrParse, station.Code, err)
	}

	form := doc.Find("form").FilterFunction(func(i int, sel *goquery.Selection) bool {
		return sel.Find(`input[name="nom"]`).Length() > 0
	})
	if form.Length() == 0 {
		return nil, fmt.Errorf("%w: station page %s has no personal-data form", entities.ErrAuthRejected, station.Code)
	}
	action := s.resolveURL(form.First().AttrOr("action", ""))

	s.courtesy()
	res, err = client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"nom":   s.contactName,
			"email": s.contactEmail,
			"usage": s.contactPurpose,
			"code":  station.Code,
		}).
		Post(action)
	if err != nil {
		return nil, fmt.Errorf("%w: submit form for station %s: %v", entities.ErrNetwork, station.Code, err)
	}
	if res.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: form for station %s rejected with status %d", entities.ErrAuthRejected, station.Code, res.StatusCode())
	}
	if deniedRe.MatchString(res.String()) {
		return nil, fmt.Errorf("%w: form for station %s rejected", entities.ErrAuthRejected, station.Code)
	}

	authorized, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: parse authorized page for station %s: %v", entities.ErrParse, station.Code, err)
	}

	period, err := parsePeriod(authorized)
	if err != nil {
		return nil, fmt.Errorf("station %s: %w", station.Code, err)
	}

	s.log.Infow("Station session opened", "code", station.Code, "period", period.String())
	return &StationSession{
		Station: station,
		Period:  period,
		client:  client,
	}, nil
}

// FetchMeasurementTable downloads the raw export for one date-range chunk.
// Chunks must not exceed one year; use entities.SplitDateRange.
func (s *AqualimScraper) FetchMeasurementTable(ctx context.Context, sess *StationSession, chunk entities.DateRange) ([]byte, error) {
	s.courtesy()

	res, err := sess.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"code":   sess.Station.Code,
			"debut":  chunk.Start.Format(dateParam),
			"fin":    chunk.End.Format(dateParam),
			"format": "xls",
		}).
		Get(exportPath)
	if err != nil {
		return nil, fmt.Errorf("%w: export %s %s: %v", entities.ErrNetwork, sess.Station.Code, chunk, err)
	}

	switch {
	case res.StatusCode() == 429:
		return nil, fmt.Errorf("%w: export %s %s", entities.ErrRateLimited, sess.Station.Code, chunk)
	case res.StatusCode() != 200:
		return nil, fmt.Errorf("%w: export %s %s returned status %d", entities.ErrNetwork, sess.Station.Code, chunk, res.StatusCode())
	}

	body := res.Body()
	if strings.Contains(string(body), "quota de téléchargement") {
		return nil, fmt.Errorf("%w: export %s %s", entities.ErrRateLimited, sess.Station.Code, chunk)
	}
	if deniedRe.Match(body) {
		return nil, fmt.Errorf("%w: export %s %s", entities.ErrAuthRejected, sess.Station.Code, chunk)
	}

	s.log.Debugw("Downloaded export", "code", sess.Station.Code, "range", chunk.String(), "bytes", len(body))
	return body, nil
}

// periodRe matches the "Période : 01/2002 - 06/2019" availability text.
var periodRe = regexp.MustCompile(`P[ée]riode\s*:\s*(\d{2})/(\d{4})\s*-\s*(\d{2})/(\d{4})`)

// parsePeriod extracts the advertised data availability range from a
// station page. The end month is included in the returned range.
func parsePeriod(doc *goquery.Document) (entities.DateRange, error) {
	m := periodRe.FindStringSubmatch(doc.Text())
	if m == nil {
		return entities.DateRange{}, fmt.Errorf("%w: availability period not found", entities.ErrParse)
	}

	startMonth, _ := strconv.Atoi(m[1])
	startYear, _ := strconv.Atoi(m[2])
	endMonth, _ := strconv.Atoi(m[3])
	endYear, _ := strconv.Atoi(m[4])

	start := time.Date(startYear, time.Month(startMonth), 1, 0, 0, 0, 0, siteZone)
	end := time.Date(endYear, time.Month(endMonth), 1, 0, 0, 0, 0, siteZone).AddDate(0, 1, 0)
	return entities.DateRange{Start: start, End: end}, nil
}

// resolveURL turns a relative link from the website into an absolute one.
func (s *AqualimScraper) resolveURL(href string) string {
	switch {
	case href == "":
		return s.baseURL
	case strings.Contains(href, "://"):
		return href
	case strings.HasPrefix(href, "/"):
		return s.baseURL + href
	default:
		return s.baseURL + "/" + href
	}
}

func parseCoordinate(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(text, ",", ".")), 64)
	if err != nil {
		return 0
	}
	return v
}
