package api

import (
	"errors"
	"net/http"

	"checkout-service/internal/commerce"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// authInstall sends the merchant to the platform's authorize page
func (h *Handler) authInstall(c *gin.Context) {
	if h.deps.OAuth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": commerce.ErrOAuthNotEnabled.Error()})
		return
	}

	installURL, err := h.deps.OAuth.InstallURL(c.Query("shop"))
	switch {
	case errors.Is(err, commerce.ErrInvalidShop):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Redirecting to platform authorization", zap.String("shop", c.Query("shop")))
	c.Redirect(http.StatusFound, installURL)
}

// authCallback completes the one-time app install. The token is written to
// the token store and only ever shown masked.
func (h *Handler) authCallback(c *gin.Context) {
	if h.deps.OAuth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": commerce.ErrOAuthNotEnabled.Error()})
		return
	}

	shop := c.Query("shop")
	code := c.Query("code")

	if !commerce.ValidShopDomain(shop) {
		c.JSON(http.StatusBadRequest, gin.H{"error": commerce.ErrInvalidShop.Error()})
		return
	}

	token, err := h.deps.OAuth.ExchangeCode(c.Request.Context(), shop, code)
	if err != nil {
		var rejected *commerce.RejectedError
		switch {
		case errors.Is(err, commerce.ErrMissingCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, commerce.ErrOAuthNotEnabled):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case errors.As(err, &rejected):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Token exchange rejected",
				"details": rejected.Body,
			})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Token exchange failed"})
		}
		return
	}

	stored := false
	if h.deps.Tokens != nil {
		if err := h.deps.Tokens.SaveAccessToken(c.Request.Context(), shop, token.AccessToken); err != nil {
			h.logger.Error("Failed to store access token", zap.String("shop", shop), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store access token"})
			return
		}
		stored = true
	}

	c.JSON(http.StatusOK, gin.H{
		"shop":         shop,
		"scope":        token.Scope,
		"access_token": util.MaskSecret(token.AccessToken),
		"stored":       stored,
	})
}
