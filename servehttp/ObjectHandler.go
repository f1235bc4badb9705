package servehttp

import (
	"net/http"

	"changeportal/common"
	"changeportal/coordinator"
	"changeportal/domain"
	"changeportal/security"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func RegisterObjectHandler(r *gin.Engine, m coordinator.ActionCoordinatorTraits, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1", middleWares...)

	handler := &objectHandler{manager: m, validator: validator.New()}
	g.GET("/watches", handler.handleActiveWatches)
	g.GET("/:kind", handler.handleList)
	g.POST("/:kind", handler.handleCreate)
	g.GET("/:kind/:id", handler.handleDetail)
	g.PUT("/:kind/:id", handler.handleEdit)
	g.POST("/:kind/:id/transitions", handler.handleTransition)
	g.DELETE("/:kind/:id/watch", handler.handleCancelWatch)
}

type objectHandler struct {
	manager   coordinator.ActionCoordinatorTraits
	validator *validator.Validate
}

func kindParam(c *gin.Context) domain.Kind {
	kind, err := domain.ParseKind(c.Param("kind"))
	if err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	return kind
}

func (h *objectHandler) bind(c *gin.Context, target interface{}) {
	if err := c.ShouldBindBodyWith(target, binding.JSON); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
	if err := h.validator.Struct(target); err != nil {
		panic(&common.ErrBadParam{Cause: err})
	}
}

func (h *objectHandler) handleList(c *gin.Context) {
	objects, err := h.manager.List(c.Request.Context(), kindParam(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, objects)
}

func (h *objectHandler) handleDetail(c *gin.Context) {
	detail, err := h.manager.Get(c.Request.Context(), kindParam(c), c.Param("id"))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func (h *objectHandler) handleCreate(c *gin.Context) {
	kind := kindParam(c)
	creation := coordinator.DraftCreation{}
	h.bind(c, &creation)

	created, err := h.manager.Create(c.Request.Context(), kind, &creation, security.ActorID(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, created)
}

func (h *objectHandler) handleEdit(c *gin.Context) {
	kind := kindParam(c)
	updating := coordinator.DraftUpdating{}
	h.bind(c, &updating)

	updated, err := h.manager.Edit(c.Request.Context(), kind, c.Param("id"), &updating, security.ActorID(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, updated)
}

func (h *objectHandler) handleTransition(c *gin.Context) {
	kind := kindParam(c)
	req := coordinator.TransitionRequest{}
	h.bind(c, &req)
	req.ActorID = security.ActorID(c)

	result, err := h.manager.PerformByID(c.Request.Context(), kind, c.Param("id"), req)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, result)
}

func (h *objectHandler) handleCancelWatch(c *gin.Context) {
	cancelled := h.manager.CancelWatch(kindParam(c), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"cancelled": cancelled})
}

func (h *objectHandler) handleActiveWatches(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.ActiveWatches())
}
