package northbound

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/subscription"
	"github.com/gridlink/tagbridge/pkg/tag"
	"github.com/gridlink/tagbridge/pkg/wire"
)

// NodeView is the JSON representation of a node.
type NodeView struct {
	NodeID          string      `json:"nodeId"`
	TagID           string      `json:"tagId"`
	DisplayName     string      `json:"displayName"`
	Folder          string      `json:"folder"`
	DataType        string      `json:"dataType"`
	Access          string      `json:"access"`
	Value           tag.Value   `json:"value"`
	Quality         tag.Quality `json:"quality"`
	SourceTimestamp time.Time   `json:"sourceTimestamp"`
	ServerTimestamp time.Time   `json:"serverTimestamp"`
	Initialized     bool        `json:"initialized"`
}

func viewOf(n *model.Node) NodeView {
	snap := n.Snapshot()
	return NodeView{
		NodeID:          snap.ID.String(),
		TagID:           snap.TagID,
		DisplayName:     snap.DisplayName,
		Folder:          snap.Folder,
		DataType:        snap.Type.String(),
		Access:          snap.Access.String(),
		Value:           snap.Value,
		Quality:         snap.Quality,
		SourceTimestamp: snap.SourceTimestamp,
		ServerTimestamp: snap.ServerTimestamp,
		Initialized:     snap.Initialized,
	}
}

// Health is the /healthz response.
type Health struct {
	Status      string `json:"status"`
	Southbound  string `json:"southbound,omitempty"`
	Namespace   uint16 `json:"namespace"`
	Nodes       int    `json:"nodes"`
	Subscribers int    `json:"subscribers"`
	Version     string `json:"version,omitempty"`
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/nodes", s.handleNodes)
	s.mux.HandleFunc("GET /api/nodes/{tagId}", s.handleNode)
	s.mux.HandleFunc("GET /api/subscribe", s.handleSubscribe)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.config.Metrics != nil {
		s.mux.Handle("GET /metrics", s.config.Metrics)
	}
}

// handleNodes lists nodes, optionally filtered by ?folder=.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")

	views := make([]NodeView, 0, s.space.NodeCount())
	for _, n := range s.space.Nodes() {
		if folder != "" && n.Folder().Name() != folder {
			continue
		}
		views = append(views, viewOf(n))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleNode returns one node by tag ID or node ID.
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.lookup(r.PathValue("tagId"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(n))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := Health{
		Status:      "ok",
		Namespace:   s.space.Namespace(),
		Nodes:       s.space.NodeCount(),
		Subscribers: s.Subscribers(),
		Version:     s.config.Version,
	}
	if s.config.SouthboundState != nil {
		h.Southbound = s.config.SouthboundState()
	}
	writeJSON(w, http.StatusOK, h)
}

// handleSubscribe creates a subscription and upgrades to a websocket.
// Parameter errors are reported as HTTP errors before the upgrade.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	enc, err := wire.ParseEncoding(q.Get("encoding"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	minInterval, err := durationParam(q.Get("min"), s.config.MinInterval)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	maxInterval, err := durationParam(q.Get("max"), s.config.MaxInterval)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		tagIDs  []string
		current = make(map[string]tag.Sample)
	)
	if raw := q.Get("nodes"); raw != "" {
		for _, ref := range strings.Split(raw, ",") {
			n, err := s.lookup(strings.TrimSpace(ref))
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			tagIDs = append(tagIDs, n.TagID())
			current[n.TagID()] = n.Sample()
		}
	} else {
		for _, n := range s.space.Nodes() {
			current[n.TagID()] = n.Sample()
		}
	}

	subID, err := s.subs.Subscribe(tagIDs, minInterval, maxInterval, current)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, subscription.ErrResourceExhausted) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.discard(subID)
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(subID, uuid.NewString(), conn, enc, s.config.SendBuffer)
	if !s.register(c) {
		c.close()
		s.discard(subID)
		return
	}

	s.config.Observer.ClientConnected()
	s.logger.Info("subscriber connected",
		"client", c.clientID,
		"subscription", subID,
		"remote", r.RemoteAddr,
		"nodes", len(tagIDs),
		"encoding", string(enc))
}

// lookup resolves a tag ID or a node ID string.
func (s *Server) lookup(ref string) (*model.Node, error) {
	if id, err := model.ParseNodeID(ref); err == nil {
		if id.Namespace != s.space.Namespace() {
			return nil, fmt.Errorf("%w: %s", model.ErrNodeNotFound, ref)
		}
		ref = id.Name
	}
	return s.space.Node(ref)
}

func durationParam(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", raw, err)
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
