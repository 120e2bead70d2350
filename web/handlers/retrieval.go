package handlers

import (
	"net/http"
	"sync"

	"trip-agent/rag"
	"trip-agent/web/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RetrievalHandler exposes the retrieval pipeline to the generation/UI
// layer: create a session, collect a corpus into it, retrieve context from
// it, reset it.
type RetrievalHandler struct {
	pipeline *rag.RAG
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*rag.Session
}

func NewRetrievalHandler(pipeline *rag.RAG, logger *zap.Logger) *RetrievalHandler {
	return &RetrievalHandler{
		pipeline: pipeline,
		logger:   logger,
		sessions: make(map[uuid.UUID]*rag.Session),
	}
}

func (h *RetrievalHandler) CreateSession(c *gin.Context) {
	session := rag.NewSession()

	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()

	h.logger.Info("Created retrieval session", zap.String("session_id", session.ID.String()))
	c.JSON(http.StatusCreated, types.SessionResponse{SessionID: session.ID.String()})
}

func (h *RetrievalHandler) Collect(c *gin.Context) {
	session, ok := h.lookupSession(c)
	if !ok {
		return
	}

	var req types.CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "query is required")
		return
	}

	items := h.pipeline.Collect(c.Request.Context(), req.Query, req.MaxResults, req.IncludeWeb)
	session.SetItems(items)

	c.JSON(http.StatusOK, types.CollectResponse{
		SessionID: session.ID.String(),
		Items:     items,
	})
}

func (h *RetrievalHandler) Retrieve(c *gin.Context) {
	session, ok := h.lookupSession(c)
	if !ok {
		return
	}

	var req types.RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "query is required")
		return
	}

	blocks, sources, err := h.pipeline.Select(c.Request.Context(), session.Items(), req.Query, req.K)
	if err != nil {
		respondWithError(c, http.StatusBadGateway, err, "retrieval failed", h.logger,
			zap.String("session_id", session.ID.String()))
		return
	}

	resp := types.RetrieveResponse{
		ContextBlocks: blocks,
		Sources:       sources,
	}
	if resp.ContextBlocks == nil {
		resp.ContextBlocks = []string{}
	}
	if resp.Sources == nil {
		resp.Sources = []rag.SourceRef{}
	}
	if len(resp.ContextBlocks) == 0 {
		resp.Warning = "insufficient context: collect sources first or broaden the query"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RetrievalHandler) DeleteSession(c *gin.Context) {
	session, ok := h.lookupSession(c)
	if !ok {
		return
	}
	session.Reset()

	h.mu.Lock()
	delete(h.sessions, session.ID)
	h.mu.Unlock()

	c.Status(http.StatusNoContent)
}

func (h *RetrievalHandler) lookupSession(c *gin.Context) (*rag.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondWithClientError(c, http.StatusBadRequest, "invalid session id")
		return nil, false
	}

	h.mu.RLock()
	session, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		respondWithClientError(c, http.StatusNotFound, "session not found")
		return nil, false
	}
	return session, true
}
