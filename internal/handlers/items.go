package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/hadbitapp/hadbit-server/internal/middleware"
	"github.com/hadbitapp/hadbit-server/internal/services"
	"github.com/hadbitapp/hadbit-server/pkg/errors"
	"github.com/hadbitapp/hadbit-server/pkg/response"
)

// ItemHandler exposes HTTP endpoints for habit items and their tree positions.
type ItemHandler struct {
	items *services.ItemService
	tree  *services.TreeService
}

// NewItemHandler constructs an item handler.
func NewItemHandler(items *services.ItemService, tree *services.TreeService) *ItemHandler {
	return &ItemHandler{items: items, tree: tree}
}

type itemPayload struct {
	Name        string         `json:"name" binding:"required"`
	ShortName   string         `json:"short_name"`
	Description string         `json:"description"`
	ItemStyle   datatypes.JSON `json:"item_style"`
	ParentID    *uint          `json:"parent_id"`
}

func (p *itemPayload) toInput() services.ItemInput {
	return services.ItemInput{
		Name:        p.Name,
		ShortName:   p.ShortName,
		Description: p.Description,
		ItemStyle:   p.ItemStyle,
		ParentID:    p.ParentID,
	}
}

type reorderPayload struct {
	ItemIDs []uint `json:"item_ids" binding:"required"`
}

func ownerID(c *gin.Context) (string, bool) {
	owner := c.GetString(middleware.CtxUserIDKey)
	if owner == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return owner, true
}

// Create registers a new top-level habit item.
func (h *ItemHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var payload itemPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	dto, err := h.items.Create(requestContext(c), owner, payload.toInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

// CreateChild registers a new item under the parent in the path.
func (h *ItemHandler) CreateChild(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	parentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var payload itemPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	input := payload.toInput()
	input.ParentID = &parentID

	dto, err := h.items.Create(requestContext(c), owner, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, dto)
}

// Get returns one item with its resolved parent.
func (h *ItemHandler) Get(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	dto, err := h.items.Get(requestContext(c), owner, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, dto)
}

// Update overwrites item fields and optionally moves it to another parent.
func (h *ItemHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var payload itemPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.items.Update(requestContext(c), owner, id, payload.toInput()); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// Delete soft-deletes an item.
func (h *ItemHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.items.SoftDelete(requestContext(c), owner, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Restore clears an item's deletion flag.
func (h *ItemHandler) Restore(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.items.Restore(requestContext(c), owner, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"restored": true})
}

// MoveUp swaps the item with its preceding sibling.
func (h *ItemHandler) MoveUp(c *gin.Context) {
	h.move(c, h.tree.MoveUp)
}

// MoveDown swaps the item with its following sibling.
func (h *ItemHandler) MoveDown(c *gin.Context) {
	h.move(c, h.tree.MoveDown)
}

func (h *ItemHandler) move(c *gin.Context, fn func(ctx context.Context, owner string, itemID uint) error) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := fn(requestContext(c), owner, id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"moved": true})
}

// ListTree returns the two-level habit tree for the current user.
func (h *ItemHandler) ListTree(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	nodes, err := h.tree.ListTree(requestContext(c), owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nodes)
}

// ListParents returns the ordered top-level categories.
func (h *ItemHandler) ListParents(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	parents, err := h.tree.ListParents(requestContext(c), owner)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, parents)
}

// Reorder rewrites sibling order slots to match the submitted id sequence.
func (h *ItemHandler) Reorder(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	var payload reorderPayload
	if !bindAndValidate(c, &payload) {
		return
	}

	if err := h.tree.Reorder(requestContext(c), owner, payload.ItemIDs); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reordered": true})
}
