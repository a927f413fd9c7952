package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/procurement-workflow/internal/domain/entity"
)

const (
	ctxUserID = "userID"
	ctxRole   = "userRole"
)

// AuthMiddleware validates the HS256 bearer token and stores the caller's
// user ID and role on the gin context
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "authorization is missing")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, "expected 'Bearer <token>'")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, http.StatusUnauthorized, "invalid token claims")
			return
		}

		userID, err := subjectID(claims["sub"])
		if err != nil {
			abort(c, http.StatusUnauthorized, err.Error())
			return
		}
		rawRole, _ := claims["role"].(string)
		role, ok := entity.ParseRole(rawRole)
		if !ok {
			abort(c, http.StatusForbidden, "unknown role")
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// IssueToken signs a token the middleware accepts
func IssueToken(secret string, userID int64, role entity.Role, claims jwt.MapClaims) (string, error) {
	all := jwt.MapClaims{}
	for k, v := range claims {
		all[k] = v
	}
	all["sub"] = strconv.FormatInt(userID, 10)
	all["role"] = string(role)
	return jwt.NewWithClaims(jwt.SigningMethodHS256, all).SignedString([]byte(secret))
}

// subjectID accepts the user ID as a JSON number or a decimal string
func subjectID(sub interface{}) (int64, error) {
	switch v := sub.(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, fmt.Errorf("invalid subject")
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return id, nil
	default:
		return 0, fmt.Errorf("subject is missing")
	}
}

func caller(c *gin.Context) (int64, entity.Role) {
	return c.GetInt64(ctxUserID), c.MustGet(ctxRole).(entity.Role)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: msg})
}
