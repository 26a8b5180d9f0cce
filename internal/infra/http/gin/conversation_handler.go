package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	conversationapp "staybook/internal/app/handlers/conversation"
	"staybook/internal/app/queries"
)

type ConversationHTTP interface {
	Get(c *gin.Context)
	PostMessage(c *gin.Context)
	MarkRead(c *gin.Context)
}

type ConversationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type postMessageRequest struct {
	Content string `json:"content"`
}

func (h ConversationHandler) Get(c *gin.Context) {
	user, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	query := conversationapp.GetConversationQuery{ConversationID: c.Param("id"), ViewerID: user.UserID}
	result, err := queries.Ask[conversationapp.GetConversationQuery, dto.Conversation](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ConversationHandler) PostMessage(c *gin.Context) {
	user, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := conversationapp.AppendMessageCommand{
		ConversationID: c.Param("id"),
		SenderID:       user.UserID,
		Content:        req.Content,
	}
	result, err := commands.Dispatch[conversationapp.AppendMessageCommand, dto.Message](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ConversationHandler) MarkRead(c *gin.Context) {
	user, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	cmd := conversationapp.MarkReadCommand{ConversationID: c.Param("id"), ActorID: user.UserID}
	result, err := commands.Dispatch[conversationapp.MarkReadCommand, dto.Conversation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ConversationHTTP = ConversationHandler{}
