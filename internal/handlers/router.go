package handlers

import "github.com/gin-gonic/gin"

// SetupRouter registers every API route on a fresh engine.
func SetupRouter(h *APIHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/products", h.ListProducts)
		api.POST("/products", h.CreateProduct)
		api.PUT("/products/:name/price", h.UpdateProductPrice)

		api.POST("/orders", h.CreateOrder)
		api.GET("/orders", h.ListOrders)
		api.GET("/stream/orders", h.StreamOrders)
		api.GET("/orders/:id", h.GetOrder)
		api.DELETE("/orders/:id", h.DeleteOrder)

		api.PUT("/orders/:id/delivery", h.UpdateDelivery)
		api.PUT("/orders/:id/items/:index/delivery", h.UpdateItemDelivery)
		api.PUT("/orders/:id/payment", h.UpdateAmountPaid)
		api.PUT("/orders/:id/paid", h.UpdateFullyPaid)
		api.PUT("/orders/:id/note", h.UpdateNote)
		api.POST("/orders/:id/print", h.PrintOrder)
	}

	return router
}
