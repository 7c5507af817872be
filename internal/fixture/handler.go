package fixture

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/SkLight/dyntree/internal/listing"
)

// Error codes sent by the handler in failed envelopes.
const (
	CodeUnknownNode = "UNKNOWN_NODE"
	CodeBadParent   = "BAD_PARENT"
)

// Handler serves a Tree over HTTP:
//
//	GET /?parent=<id>  ->  {"status":"ok","result":[...]}
//
// The parent parameter is omitted for the root.
type Handler struct {
	tree   *Tree
	logger zerolog.Logger

	mu       sync.Mutex
	requests map[int64]int
}

// NewHandler creates a handler for tree.
func NewHandler(tree *Tree, logger zerolog.Logger) *Handler {
	return &Handler{
		tree:     tree,
		logger:   logger.With().Str("component", "fixture").Logger(),
		requests: make(map[int64]int),
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parentID := listing.RootID
	if raw := r.URL.Query().Get(listing.ParentParam); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.write(w, http.StatusBadRequest, listing.Failure(CodeBadParent, "parent must be an integer"))
			return
		}
		parentID = id
	}
	h.count(parentID)

	children, b, err := h.tree.Children(parentID)
	if err != nil {
		if errors.Is(err, ErrUnknownNode) {
			h.write(w, http.StatusOK, listing.Failure(CodeUnknownNode, err.Error()))
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := sleep(r.Context(), b.Latency); err != nil {
		return
	}
	if b.HTTPStatus != 0 && !is2xx(b.HTTPStatus) {
		http.Error(w, http.StatusText(b.HTTPStatus), b.HTTPStatus)
		h.logger.Debug().Int64("parent_id", parentID).Int("status", b.HTTPStatus).Msg("injected HTTP failure")
		return
	}

	answer := answerFor(children, b)
	h.write(w, http.StatusOK, answer)
	h.logger.Debug().
		Int64("parent_id", parentID).
		Int("children", len(answer.Result)).
		Bool("failed", answer.Failed()).
		Msg("served listing")
}

// Requests returns how many requests asked for the children of parentID.
func (h *Handler) Requests(parentID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests[parentID]
}

// TotalRequests returns the number of listing requests served.
func (h *Handler) TotalRequests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.requests {
		n += c
	}
	return n
}

func (h *Handler) count(parentID int64) {
	h.mu.Lock()
	h.requests[parentID]++
	h.mu.Unlock()
}

func (h *Handler) write(w http.ResponseWriter, status int, answer listing.Answer) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(answer); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write answer")
	}
}
