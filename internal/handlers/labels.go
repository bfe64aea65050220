package handlers

import (
	"net/http"

	"taskshare/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	categoriesPath = "/categories"
	tagsPath       = "/tags"
)

// LabelHandler serves the category and tag pages.
type LabelHandler struct {
	categoryService services.CategoryService
	tagService      services.TagService
}

type CategoryForm struct {
	Name  string `form:"name" json:"name" binding:"required"`
	Color string `form:"color" json:"color"`
	Icon  string `form:"icon" json:"icon"`
}

type TagForm struct {
	Name  string `form:"name" json:"name" binding:"required"`
	Color string `form:"color" json:"color"`
}

func NewLabelHandler(categoryService services.CategoryService, tagService services.TagService) *LabelHandler {
	return &LabelHandler{categoryService: categoryService, tagService: tagService}
}

func (h *LabelHandler) Categories(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	categories, err := h.categoryService.ListCategories(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *LabelHandler) CategoryForm(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	if c.Param("id") == "" {
		c.JSON(http.StatusOK, gin.H{"fields": []string{"name", "color", "icon"}})
		return
	}
	categoryID, ok := parseID(c, "id")
	if !ok {
		return
	}

	category, err := h.categoryService.GetCategory(c.Request.Context(), userID, categoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

func (h *LabelHandler) AddCategory(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var form CategoryForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), userID, services.CategoryInput(form))
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, categoriesPath, http.StatusCreated, category)
}

func (h *LabelHandler) EditCategory(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	categoryID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var form CategoryForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), userID, categoryID, services.CategoryInput(form))
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, categoriesPath, http.StatusOK, category)
}

func (h *LabelHandler) DeleteCategory(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	categoryID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.categoryService.DeleteCategory(c.Request.Context(), userID, categoryID); err != nil {
		respondError(c, err)
		return
	}
	finish(c, categoriesPath, http.StatusOK, gin.H{"message": "Category deleted"})
}

func (h *LabelHandler) Tags(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	tags, err := h.tagService.ListTags(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags})
}

func (h *LabelHandler) TagForm(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	if c.Param("id") == "" {
		c.JSON(http.StatusOK, gin.H{"fields": []string{"name", "color"}})
		return
	}
	tagID, ok := parseID(c, "id")
	if !ok {
		return
	}

	tag, err := h.tagService.GetTag(c.Request.Context(), userID, tagID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tag": tag})
}

func (h *LabelHandler) AddTag(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var form TagForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}

	tag, err := h.tagService.CreateTag(c.Request.Context(), userID, services.TagInput(form))
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, tagsPath, http.StatusCreated, tag)
}

func (h *LabelHandler) EditTag(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	tagID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var form TagForm
	if err := c.ShouldBind(&form); err != nil {
		respondBindError(c, err)
		return
	}

	tag, err := h.tagService.UpdateTag(c.Request.Context(), userID, tagID, services.TagInput(form))
	if err != nil {
		respondError(c, err)
		return
	}
	finish(c, tagsPath, http.StatusOK, tag)
}

func (h *LabelHandler) DeleteTag(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}
	tagID, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.tagService.DeleteTag(c.Request.Context(), userID, tagID); err != nil {
		respondError(c, err)
		return
	}
	finish(c, tagsPath, http.StatusOK, gin.H{"message": "Tag deleted"})
}
