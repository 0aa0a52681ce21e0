package server

import (
	"encoding/json"
	"net/http"

	"github.com/flowscope/flowscope/pkg/editor"
	"github.com/flowscope/flowscope/pkg/editor/history"
	"github.com/flowscope/flowscope/pkg/errors"
	"github.com/flowscope/flowscope/pkg/layout"
	"github.com/flowscope/flowscope/pkg/render"
	"github.com/flowscope/flowscope/pkg/store"
)

// =============================================================================
// Response plumbing
// =============================================================================

type apiError struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidDiagram, errors.ErrCodeInvalidPayload:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeStaleReference:
		status = http.StatusNotFound
	case errors.ErrCodeNoActiveDrag:
		status = http.StatusConflict
	case errors.ErrCodeUnsupported:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, apiError{Code: code, Message: errors.UserMessage(err)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidPayload, err, "malformed request body"))
		return false
	}
	return true
}

// =============================================================================
// Read endpoints
// =============================================================================

func (s *Server) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Diagram())
}

type positionEntry struct {
	Position *layout.Point `json:"position"`
	Size     *layout.Size  `json:"size,omitempty"`
	Label    *layout.Point `json:"label,omitempty"`
}

type positionsResponse struct {
	Frame layout.Size              `json:"frame"`
	Nodes map[string]positionEntry `json:"nodes"`
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	d := s.session.Diagram()
	resp := positionsResponse{
		Frame: s.session.Frame(),
		Nodes: make(map[string]positionEntry, len(d.Nodes)),
	}
	for _, n := range d.Nodes {
		resp.Nodes[n.Name] = positionEntry{
			Position: s.session.FinalPosition(n.Name),
			Size:     s.session.NodeSize(n.Name),
			Label:    s.session.FinalLabelPosition(n.Name),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type historyResponse struct {
	State   history.StackState `json:"state"`
	Actions []history.Action   `json:"actions"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, historyResponse{
		State:   s.session.StackState(),
		Actions: s.session.History(),
	})
}

type verifyRequest struct {
	ID   string      `json:"id"`
	Kind editor.Kind `json:"kind"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decode(w, r, &req) {
		return
	}
	rep := s.session.VerifyPosition(req.ID, req.Kind, layout.Point{X: req.X, Y: req.Y})
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleRenderSVG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(render.SVG(s.session))
}

// =============================================================================
// Structural edits
// =============================================================================

type addNodeRequest struct {
	Name    string  `json:"name"`
	Color   string  `json:"color,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.session.AddNode(req.Name, editor.NodeOptions{Color: req.Color, Opacity: req.Opacity}); err != nil {
		writeError(w, err)
		return
	}
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusCreated, s.session.Diagram())
}

type deleteNodeRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	var req deleteNodeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.session.DeleteNode(req.Name); err != nil {
		writeError(w, err)
		return
	}
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusOK, s.session.Diagram())
}

type addFlowRequest struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`
}

func (s *Server) handleAddFlow(w http.ResponseWriter, r *http.Request) {
	var req addFlowRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.session.AddFlow(req.Source, req.Target, req.Value); err != nil {
		writeError(w, err)
		return
	}
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusCreated, s.session.Diagram())
}

type deleteFlowRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	var req deleteFlowRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.session.DeleteFlow(req.Source, req.Target); err != nil {
		writeError(w, err)
		return
	}
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusOK, s.session.Diagram())
}

type propertyRequest struct {
	ElementType string `json:"element_type"`
	ElementID   string `json:"element_id"`
	Property    string `json:"property"`
	Value       any    `json:"value"`
}

func (s *Server) handleSetProperty(w http.ResponseWriter, r *http.Request) {
	var req propertyRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.session.SetProperty(req.ElementType, req.ElementID, req.Property, req.Value); err != nil {
		writeError(w, err)
		return
	}
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusOK, s.session.Diagram())
}

// =============================================================================
// Drag lifecycle
// =============================================================================

type dragStartRequest struct {
	Kind editor.Kind `json:"kind"`
	ID   string      `json:"id"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req dragStartRequest
	if !decode(w, r, &req) {
		return
	}
	if !s.session.StartDrag(req.Kind, req.ID, req.X, req.Y) {
		writeError(w, errors.New(errors.ErrCodeStaleReference, "cannot drag %s %q", req.Kind, req.ID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": true})
}

type dragUpdateRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (s *Server) handleDragUpdate(w http.ResponseWriter, r *http.Request) {
	var req dragUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	p, ok := s.session.UpdateDrag(req.X, req.Y)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNoActiveDrag, "no drag in progress"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	if !s.session.EndDrag() {
		writeError(w, errors.New(errors.ErrCodeNoActiveDrag, "no drag in progress"))
		return
	}
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusOK, s.session.StackState())
}

func (s *Server) handleDragCancel(w http.ResponseWriter, r *http.Request) {
	if !s.session.CancelDrag() {
		writeError(w, errors.New(errors.ErrCodeNoActiveDrag, "no drag in progress"))
		return
	}
	writeJSON(w, http.StatusOK, s.session.StackState())
}

// =============================================================================
// History
// =============================================================================

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if s.session.Undo() {
		s.hub.broadcastPositions(s.session)
	}
	writeJSON(w, http.StatusOK, s.session.StackState())
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	if s.session.Redo() {
		s.hub.broadcastPositions(s.session)
	}
	writeJSON(w, http.StatusOK, s.session.StackState())
}

func (s *Server) handleResetNodes(w http.ResponseWriter, r *http.Request) {
	s.session.ResetPositions(true)
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusOK, s.session.StackState())
}

func (s *Server) handleResetLabels(w http.ResponseWriter, r *http.Request) {
	s.session.ResetLabels(true)
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusOK, s.session.StackState())
}

// =============================================================================
// Persistence
// =============================================================================

type saveRequest struct {
	Title string `json:"title,omitempty"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeStore, "no document store configured"))
		return
	}
	var req saveRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}

	overlay, err := s.session.Overlay().Serialize()
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeStore, err, "serialize overlay"))
		return
	}

	if req.Title != "" {
		s.docTitle = req.Title
	}
	if s.docTitle == "" {
		s.docTitle = s.session.Diagram().Title
	}

	doc := &store.Document{ID: s.docID, Title: s.docTitle, Diagram: s.session.Diagram(), Overlay: overlay}
	if doc.ID == "" {
		doc = store.NewDocument(s.docTitle, s.session.Diagram())
		doc.Overlay = overlay
	}
	if err := s.store.Put(r.Context(), doc); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeStore, err, "save document"))
		return
	}
	s.docID = doc.ID
	writeJSON(w, http.StatusOK, map[string]string{"id": doc.ID})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeStore, "no document store configured"))
		return
	}
	ids, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeStore, err, "list documents"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

type loadRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleLoadDocument(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, errors.New(errors.ErrCodeStore, "no document store configured"))
		return
	}
	var req loadRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := s.store.Get(r.Context(), req.ID)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, errors.New(errors.ErrCodeNotFound, "document %q does not exist", req.ID))
			return
		}
		writeError(w, errors.Wrap(errors.ErrCodeStore, err, "load document"))
		return
	}

	if err := s.session.ReplaceDiagram(doc.Diagram); err != nil {
		writeError(w, err)
		return
	}
	if len(doc.Overlay) > 0 && !s.session.Overlay().Deserialize(doc.Overlay) {
		s.logger.Warn("stored overlay rejected, using automatic layout", "doc", doc.ID)
	}
	s.docID = doc.ID
	s.docTitle = doc.Title
	s.hub.broadcastPositions(s.session)
	writeJSON(w, http.StatusOK, s.session.Diagram())
}
