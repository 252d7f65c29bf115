// Package lotto generates lottery number sets weighted by the historical
// draw frequency scraped from a public statistics page.
package lotto

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Lottery constants: numbers run 1..45, a set holds 6, and one draw produces
// five sets labeled A through E.
const (
	MaxNumber  = 45
	SetSize    = 6
	SetCount   = 5
	setLabels  = "ABCDE"
	defaultURL = "https://dhlottery.co.kr/gameResult.do?method=statByNumber"
)

// Stats maps a lottery number to how many times it has been drawn.
type Stats map[int]int

// Client fetches and parses the statistics page. The HTTP client is injected
// so tests can serve a fixture.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a Client. A nil httpClient falls back to
// http.DefaultClient; an empty url falls back to the public statistics page.
func NewClient(httpClient *http.Client, url string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if url == "" {
		url = defaultURL
	}
	return &Client{httpClient: httpClient, url: url}
}

// FetchStats downloads the statistics page and parses the per-number draw
// frequencies out of it.
func (c *Client) FetchStats(ctx context.Context) (Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stats page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats page returned status %d", resp.StatusCode)
	}
	return ParseStats(resp.Body)
}

// ParseStats extracts number frequencies from the statistics page HTML. Each
// table row whose first cell is a number in 1..45 and whose second cell is an
// integer contributes one (number, frequency) pair. Rows that do not match
// are skipped, so layout noise around the table is harmless.
func ParseStats(r io.Reader) (Stats, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse stats html: %w", err)
	}

	stats := Stats{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			cells := cellTexts(n)
			if len(cells) >= 2 {
				num, err1 := strconv.Atoi(cells[0])
				freq, err2 := strconv.Atoi(strings.ReplaceAll(cells[1], ",", ""))
				if err1 == nil && err2 == nil && num >= 1 && num <= MaxNumber && freq >= 0 {
					stats[num] = freq
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(stats) == 0 {
		return nil, fmt.Errorf("no frequency rows found in stats page")
	}
	return stats, nil
}

// cellTexts collects the trimmed text content of each td under a row.
func cellTexts(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "td" {
			cells = append(cells, strings.TrimSpace(nodeText(c)))
		}
	}
	return cells
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

// Set is one generated line: a label A..E and six formatted numbers.
type Set struct {
	Label   string `json:"label"`
	Numbers string `json:"numbers"`
}

// Draw produces five sets of six unique numbers each, sampled from a pool
// where every number appears once per historical draw, so frequently drawn
// numbers are proportionally more likely. Empty stats degrade to a uniform
// pool. Numbers are sorted ascending and rendered as two-digit strings
// joined with ", ".
func Draw(stats Stats, rng *rand.Rand) []Set {
	pool := buildPool(stats)

	sets := make([]Set, 0, SetCount)
	for i := 0; i < SetCount; i++ {
		picked := pickUnique(pool, rng)
		sort.Ints(picked)

		parts := make([]string, len(picked))
		for j, n := range picked {
			parts[j] = fmt.Sprintf("%02d", n)
		}
		sets = append(sets, Set{
			Label:   string(setLabels[i]),
			Numbers: strings.Join(parts, ", "),
		})
	}
	return sets
}

// buildPool expands the frequency table into a weighted sampling pool. Every
// number is seeded with one entry so a number never drawn can still appear.
func buildPool(stats Stats) []int {
	var pool []int
	for n := 1; n <= MaxNumber; n++ {
		pool = append(pool, n)
		for i := 0; i < stats[n]; i++ {
			pool = append(pool, n)
		}
	}
	return pool
}

// pickUnique samples from the pool until six distinct numbers are drawn.
func pickUnique(pool []int, rng *rand.Rand) []int {
	seen := make(map[int]bool, SetSize)
	var picked []int
	for len(picked) < SetSize {
		n := pool[rng.Intn(len(pool))]
		if seen[n] {
			continue
		}
		seen[n] = true
		picked = append(picked, n)
	}
	return picked
}
