package api

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/oyeong/noteapi/internal/lotto"
)

// LottoHandlers holds dependencies for the lottery number endpoint.
type LottoHandlers struct {
	client *lotto.Client
	rng    *rand.Rand
}

// NewLottoHandlers creates a new LottoHandlers instance. A nil rng gets a
// time-seeded source; tests inject a fixed seed.
func NewLottoHandlers(client *lotto.Client, rng *rand.Rand) *LottoHandlers {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &LottoHandlers{client: client, rng: rng}
}

// Generate handles GET /v1/lotto: five frequency-weighted number sets. The
// statistics page is fetched per request; if it is unreachable the draw
// degrades to a uniform pool instead of failing.
func (h *LottoHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	stats, err := h.client.FetchStats(r.Context())
	if err != nil {
		stats = lotto.Stats{}
	}

	sets := lotto.Draw(stats, h.rng)

	results := make(map[string]string, len(sets))
	for _, set := range sets {
		results[set.Label] = set.Numbers
	}
	WriteJSON(w, r.Context(), http.StatusOK, results)
}
