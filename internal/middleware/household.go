package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/user/cinefam/internal/utils"
)

// Context keys set by RequireHousehold.
const (
	ContextHouseholdID = "household_id"
	ContextProfileID   = "profile_id"
)

// RequireHousehold extracts the household identity resolved by the upstream
// auth layer. The core never resolves identity itself; a request without a
// household id is rejected.
func RequireHousehold() gin.HandlerFunc {
	return func(c *gin.Context) {
		householdID := c.GetHeader("X-Household-ID")
		if householdID == "" {
			utils.Error(c, http.StatusUnauthorized, "missing household identity")
			c.Abort()
			return
		}
		c.Set(ContextHouseholdID, householdID)
		if profileID := c.GetHeader("X-Profile-ID"); profileID != "" {
			c.Set(ContextProfileID, profileID)
		}
		c.Next()
	}
}

// HouseholdID returns the household id set by RequireHousehold.
func HouseholdID(c *gin.Context) string {
	return c.GetString(ContextHouseholdID)
}

// ProfileID returns the optional profile id, or nil.
func ProfileID(c *gin.Context) *string {
	if v := c.GetString(ContextProfileID); v != "" {
		return &v
	}
	return nil
}
