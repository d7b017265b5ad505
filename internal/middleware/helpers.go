// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// MustGetAccountID gets the account ID from context or panics
func MustGetAccountID(c *gin.Context) string {
	accountID, err := GetAccountID(c)
	if err != nil {
		panic("account_id not found in context")
	}
	return accountID
}

// MustGetJTI gets JTI from context or panics
func MustGetJTI(c *gin.Context) string {
	jti, exists := GetJTI(c)
	if !exists {
		panic("jti not found in context")
	}
	return jti
}

// GetEmail gets the account email from context
func GetEmail(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, err := GetAccountID(c)
	return err == nil
}
