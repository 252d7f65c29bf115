package lotto

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const fixtureHTML = `<html><body>
<div class="header">로또 번호별 당첨 통계</div>
<table class="tbl_data">
<thead><tr><th>번호</th><th>당첨 횟수</th></tr></thead>
<tbody>
<tr><td>1</td><td>180</td></tr>
<tr><td>2</td><td>165</td></tr>
<tr><td>3</td><td>170</td></tr>
<tr><td>43</td><td>190</td></tr>
<tr><td>44</td><td>1,020</td></tr>
<tr><td>45</td><td>175</td></tr>
<tr><td>합계</td><td>900</td></tr>
</tbody>
</table>
</body></html>`

func TestParseStats(t *testing.T) {
	stats, err := ParseStats(strings.NewReader(fixtureHTML))
	if err != nil {
		t.Fatalf("ParseStats() error = %v", err)
	}
	if len(stats) != 6 {
		t.Errorf("parsed %d rows, want 6", len(stats))
	}
	if stats[1] != 180 {
		t.Errorf("stats[1] = %d, want 180", stats[1])
	}
	// thousands separators in frequency cells are stripped
	if stats[44] != 1020 {
		t.Errorf("stats[44] = %d, want 1020", stats[44])
	}
}

func TestParseStatsNoRows(t *testing.T) {
	if _, err := ParseStats(strings.NewReader("<html><body><p>점검 중</p></body></html>")); err == nil {
		t.Error("expected an error for a page without frequency rows")
	}
}

func TestFetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixtureHTML))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL)
	stats, err := client.FetchStats(context.Background())
	if err != nil {
		t.Fatalf("FetchStats() error = %v", err)
	}
	if stats[45] != 175 {
		t.Errorf("stats[45] = %d, want 175", stats[45])
	}
}

func TestFetchStatsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL)
	if _, err := client.FetchStats(context.Background()); err == nil {
		t.Error("expected an error for a non-200 response")
	}
}

func TestDraw(t *testing.T) {
	stats := Stats{7: 500, 13: 300}
	rng := rand.New(rand.NewSource(1))

	sets := Draw(stats, rng)
	if len(sets) != SetCount {
		t.Fatalf("sets = %d, want %d", len(sets), SetCount)
	}

	wantLabels := []string{"A", "B", "C", "D", "E"}
	for i, set := range sets {
		if set.Label != wantLabels[i] {
			t.Errorf("label[%d] = %q, want %q", i, set.Label, wantLabels[i])
		}

		parts := strings.Split(set.Numbers, ", ")
		if len(parts) != SetSize {
			t.Fatalf("set %s has %d numbers: %q", set.Label, len(parts), set.Numbers)
		}
		seen := map[string]bool{}
		prev := ""
		for _, part := range parts {
			if len(part) != 2 {
				t.Errorf("number %q is not two digits", part)
			}
			if seen[part] {
				t.Errorf("set %s repeats %q", set.Label, part)
			}
			seen[part] = true
			if part < prev {
				t.Errorf("set %s is not sorted: %q", set.Label, set.Numbers)
			}
			prev = part
		}
	}
}

func TestDrawEmptyStatsIsUniform(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sets := Draw(Stats{}, rng)
	if len(sets) != SetCount {
		t.Fatalf("sets = %d, want %d", len(sets), SetCount)
	}
}

func TestBuildPoolWeighting(t *testing.T) {
	pool := buildPool(Stats{5: 9})
	count := 0
	for _, n := range pool {
		if n == 5 {
			count++
		}
	}
	// one seed entry plus nine frequency entries
	if count != 10 {
		t.Errorf("pool holds %d fives, want 10", count)
	}
	if len(pool) != MaxNumber+9 {
		t.Errorf("pool size = %d, want %d", len(pool), MaxNumber+9)
	}
}
