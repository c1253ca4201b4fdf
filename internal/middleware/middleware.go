package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Logger 日志中间件
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("latency", latency),
			zap.String("request_id", c.GetString("request_id")),
		}

		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if status >= 500 {
			logger.Error("Server error", fields...)
		} else if status >= 400 {
			logger.Warn("Client error", fields...)
		} else {
			logger.Info("Request", fields...)
		}
	}
}

// CORS 跨域中间件
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "Authorization", "Cache-Control", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}

// RequestID 请求ID中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// JWTClaims JWT claims
type JWTClaims struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// RevocationChecker 判断 access token 是否已注销（logout 黑名单）
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWTAuth JWT认证中间件
func JWTAuth(secret string, revocation ...RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// 回退到 query param（SSE 使用）
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			abort(c, http.StatusUnauthorized, 40100, "Authentication credentials were not provided.")
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			abort(c, http.StatusUnauthorized, 40102, "Given token not valid for any token type")
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok || !token.Valid || claims.UserID == "" || claims.Type == "refresh" {
			abort(c, http.StatusUnauthorized, 40103, "Invalid token claims")
			return
		}

		for _, rc := range revocation {
			if rc == nil || claims.ID == "" {
				continue
			}
			revoked, err := rc.IsRevoked(c.Request.Context(), claims.ID)
			if err == nil && revoked {
				abort(c, http.StatusUnauthorized, 40104, "Token has been revoked")
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.Name)
		c.Set("user_email", claims.Email)
		c.Set("role", claims.Role)
		c.Set("token_id", claims.ID)
		c.Set("claims", claims)
		c.Next()
	}
}

// UserResolver 按用户ID读取当前角色与启用状态，用户不存在时 active 为 false
type UserResolver interface {
	ResolveUser(ctx context.Context, userID string) (role string, active bool, err error)
}

// CurrentUser 须在 JWTAuth 之后，以数据库中的角色覆盖 token 中的角色
func CurrentUser(resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, active, err := resolver.ResolveUser(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			abort(c, http.StatusInternalServerError, 50001, "User lookup failed")
			return
		}
		if !active {
			abort(c, http.StatusUnauthorized, 40105, "User is inactive or no longer exists")
			return
		}
		c.Set("role", role)
		c.Next()
	}
}

// AccessChecker 角色 → 模块 → 访问级别
type AccessChecker interface {
	CheckAccess(ctx context.Context, role, module, method string) (bool, error)
}

// RequireModuleAccess 模块访问控制，每个请求重新判定
func RequireModuleAccess(checker AccessChecker, module string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			abort(c, http.StatusForbidden, 40300, "No role found")
			return
		}

		allowed, err := checker.CheckAccess(c.Request.Context(), role, module, c.Request.Method)
		if err != nil {
			abort(c, http.StatusInternalServerError, 50000, "Permission lookup failed")
			return
		}
		if !allowed {
			abort(c, http.StatusForbidden, 40301, "You do not have permission to perform this action.")
			return
		}
		c.Next()
	}
}

// RequireRole 角色检查中间件，admin 始终通过
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		if role == "" {
			abort(c, http.StatusForbidden, 40310, "No role found")
			return
		}
		if role == "admin" {
			c.Next()
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, 40312, "Role required: "+strings.Join(roles, ","))
	}
}

func abort(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
		"detail":  message,
	})
}
