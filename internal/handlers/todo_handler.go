package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"theone-todo/internal/docschema"
	"theone-todo/internal/models"
	"theone-todo/internal/repositories"
	"theone-todo/internal/services"
)

// TodoHandler はTodo関連のハンドラーを管理します。
type TodoHandler struct {
	todoService *services.TodoService
}

// NewTodoHandler は新しいTodoHandlerを作成します。
func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// currentUser は AuthMiddleware が設定したユーザー情報を取り出します。
func currentUser(c *gin.Context) (services.Caller, bool) {
	userID, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return services.Caller{}, false
	}
	id, ok := userID.(int)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type in context"})
		return services.Caller{}, false
	}
	return services.Caller{
		UserID: id,
		Name:   c.GetString("user_name"),
		Role:   c.GetString("user_role"),
	}, true
}

// respondTodoError はサービスのエラーをステータスコードに変換します。
func respondTodoError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, repositories.ErrTodoNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Todo not found"})
	case errors.Is(err, repositories.ErrTodoForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	default:
		log.Error(fallback, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// respondInvalid はスキーマ違反を400で返します。
func respondInvalid(c *gin.Context, err error) {
	var details []string
	var ve *docschema.ValidationError
	if errors.As(err, &ve) {
		for _, f := range ve.Fields {
			details = append(details, f.String())
		}
	} else {
		details = []string{err.Error()}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": details})
}

// CreateTodoHandler は新しいTodoを作成します。
func (h *TodoHandler) CreateTodoHandler(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		respondInvalid(c, err)
		return
	}
	if err := docschema.ValidateCreate(raw); err != nil {
		respondInvalid(c, err)
		return
	}
	var req models.TodoCreateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		respondInvalid(c, err)
		return
	}

	item := req.Item()
	created, err := h.todoService.CreateTodo(c.Request.Context(), &item, caller)
	if err != nil {
		respondTodoError(c, err, "Failed to save todo to database")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateTodoHandler はTodoを部分更新します。
func (h *TodoHandler) UpdateTodoHandler(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		respondInvalid(c, err)
		return
	}
	if err := docschema.ValidatePatch(raw); err != nil {
		respondInvalid(c, err)
		return
	}
	patch, err := decodePatch(raw)
	if err != nil {
		respondInvalid(c, err)
		return
	}

	updated, err := h.todoService.UpdateTodo(c.Request.Context(), c.Param("id"), patch, caller)
	if err != nil {
		respondTodoError(c, err, "Failed to update todo")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// decodePatch は {"deadline": null} を「期限を消す」として扱います。
func decodePatch(raw []byte) (models.TodoPatch, error) {
	var patch models.TodoPatch
	if err := json.Unmarshal(raw, &patch); err != nil {
		return patch, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return patch, err
	}
	if _, ok := fields["deadline"]; ok && patch.Deadline == nil {
		patch.Deadline = &models.Deadline{}
	}
	return patch, nil
}

// DeleteTodoHandler はTodoを削除します。
func (h *TodoHandler) DeleteTodoHandler(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.todoService.DeleteTodo(c.Request.Context(), c.Param("id"), caller); err != nil {
		respondTodoError(c, err, "Failed to delete todo")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetTodosHandler はTodoリストを期限順で取得します。
// ?owner= で所有者を指定します (省略時は自分)。adminは ?all=true で全件。
func (h *TodoHandler) GetTodosHandler(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		return
	}

	var (
		todos []*models.TodoItem
		err   error
	)
	if c.Query("all") == "true" {
		todos, err = h.todoService.ListAllTodos(c.Request.Context(), caller)
	} else {
		todos, err = h.todoService.ListTodos(c.Request.Context(), c.Query("owner"), caller)
	}
	if err != nil {
		respondTodoError(c, err, "Failed to fetch todos")
		return
	}
	c.JSON(http.StatusOK, todos)
}

// GetTodoByIDHandler は指定IDのTodoを取得します。
func (h *TodoHandler) GetTodoByIDHandler(c *gin.Context) {
	caller, ok := currentUser(c)
	if !ok {
		return
	}
	todo, err := h.todoService.GetTodoByID(c.Request.Context(), c.Param("id"), caller)
	if err != nil {
		respondTodoError(c, err, "Failed to fetch todo")
		return
	}
	c.JSON(http.StatusOK, todo)
}
