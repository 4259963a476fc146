package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEscrowHandler_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &EscrowHandler{escrow: nil}
	r.POST("/offers/:id/hold", handler.CreateHold)
	r.POST("/offers/:id/hold/finalize", handler.FinalizeHold)
	r.GET("/offers/:id/escrow", handler.GetEscrow)

	id := uuid.NewString()
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/offers/"+id+"/hold", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/offers/"+id+"/hold/finalize", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/offers/"+id+"/escrow", "").Code)
}

func TestEscrowHandler_CreateHold_UnknownMethod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withUser(uuid.New()))
	handler := &EscrowHandler{escrow: nil}
	r.POST("/offers/:id/hold", handler.CreateHold)

	w := serve(r, http.MethodPost, "/offers/"+uuid.NewString()+"/hold", `{"amount": 5000, "method": "crypto"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/offers/"+uuid.NewString()+"/hold", `{"amount": 5000}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEscrowHandler_FinalizeHold_MissingReference(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withUser(uuid.New()))
	handler := &EscrowHandler{escrow: nil}
	r.POST("/offers/:id/hold/finalize", handler.FinalizeHold)

	w := serve(r, http.MethodPost, "/offers/"+uuid.NewString()+"/hold/finalize", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeliveryHandler_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &DeliveryHandler{delivery: nil}
	r.POST("/offers/:id/delivery", handler.SubmitDelivery)
	r.POST("/offers/:id/delivery/accept", handler.AcceptDelivery)

	id := uuid.NewString()
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/offers/"+id+"/delivery", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/offers/"+id+"/delivery/accept", "").Code)
}

func TestDeliveryHandler_MissingLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withUser(uuid.New()))
	handler := &DeliveryHandler{delivery: nil}
	r.POST("/offers/:id/delivery", handler.SubmitDelivery)

	w := serve(r, http.MethodPost, "/offers/"+uuid.NewString()+"/delivery", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostingHandler_DeletePosting(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &PostingHandler{cleanup: nil}

	r := gin.New()
	r.DELETE("/postings/:id", handler.DeletePosting)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodDelete, "/postings/"+uuid.NewString(), "").Code)

	r = gin.New()
	r.Use(withUser(uuid.New()))
	r.DELETE("/postings/:id", handler.DeletePosting)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodDelete, "/postings/nope", "").Code)
}

func TestNotificationHandler_Unauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := &NotificationHandler{service: nil}
	r.GET("/notifications", handler.ListUnread)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/notifications", "").Code)
}
