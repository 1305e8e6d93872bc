package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kraalhq/kraal/internal/money"
	requestdomain "github.com/kraalhq/kraal/internal/request/domain"
	"github.com/kraalhq/kraal/pkg/db/pagination"
)

type createRequestBody struct {
	Species         string `json:"species" binding:"required"`
	Quantity        int64  `json:"quantity" binding:"required"`
	Unit            string `json:"unit"`
	MaxPricePerUnit int64  `json:"max_price_per_unit" binding:"required"`
	Province        string `json:"province"`
}

func (s *Server) CreateRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	created, err := s.requestSvc.Create(c.Request.Context(), requestdomain.CreateRequest{
		BuyerID:         actorID(c),
		Species:         body.Species,
		Quantity:        body.Quantity,
		Unit:            body.Unit,
		MaxPricePerUnit: money.Amount(body.MaxPricePerUnit),
		Province:        body.Province,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListRequests(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("page", "invalid_pagination", "invalid pagination parameters"))
		return
	}

	rows, info, err := s.requestSvc.ListOpen(c.Request.Context(), page)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      rows,
		"page_info": info,
	})
}

func (s *Server) GetRequest(c *gin.Context) {
	found, err := s.requestSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (s *Server) CancelRequest(c *gin.Context) {
	cancelled, err := s.requestSvc.Cancel(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cancelled)
}
