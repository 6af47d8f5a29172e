package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/WishingWellCode/Wishing/internal/models"
	"github.com/WishingWellCode/Wishing/internal/services"
)

type FountainHandler struct {
	fountain *services.FountainService
}

func NewFountainHandler(fountain *services.FountainService) *FountainHandler {
	return &FountainHandler{fountain: fountain}
}

func (h *FountainHandler) StartSession(c *gin.Context) {
	var req models.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet address required"})
		return
	}

	result, err := h.fountain.Start(c.Request.Context(), req.WalletAddress, req.ClientSeed)
	if err != nil {
		var conflict *services.ConflictError
		if errors.As(err, &conflict) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Already have pending session",
				"sessionId": conflict.SessionID,
				"age":       conflict.Age.Milliseconds(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sessionId":    result.SessionID,
		"serverCommit": result.ServerCommit,
		"clientSeed":   result.ClientSeed,
		"burnAddress":  result.BurnAddress,
		"exactStake":   result.ExactStake,
		"message": fmt.Sprintf("Send exactly %d $WISH tokens to the burn address, then call /api/fountain/resolve",
			result.ExactStake),
	})
}

func (h *FountainHandler) ResolveSession(c *gin.Context) {
	var req models.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session ID and transaction signature required"})
		return
	}

	session, err := h.fountain.Resolve(c.Request.Context(), req.SessionID, req.TxSignature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid session"})
		case errors.Is(err, services.ErrAlreadyResolved):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session already resolved"})
		case errors.Is(err, services.ErrBurnNotVerified):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Burn transaction not verified"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve session"})
		}
		return
	}

	// Full reveal: the client can now recompute the roll from the seeds
	// and the burn signature and check it against the commit.
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"sessionId":    session.SessionID,
		"serverSeed":   session.ServerSeed,
		"serverCommit": session.ServerCommit,
		"clientSeed":   session.ClientSeed,
		"burnTx":       session.Result.BurnTx,
		"payoutTx":     session.Result.PayoutTx,
		"result": gin.H{
			"tier":       session.Result.Tier,
			"multiplier": session.Result.Multiplier,
			"payout":     session.Result.Payout,
			"message":    services.ResultMessage(session.Result.Tier),
		},
		"timestamp": time.Now().UnixMilli(),
	})
}

func (h *FountainHandler) ClearSession(c *gin.Context) {
	var req models.ClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Wallet address required"})
		return
	}

	if err := h.fountain.Clear(c.Request.Context(), req.WalletAddress); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Session cleared"})
}
