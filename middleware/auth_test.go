package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-pos-api/config"
	"restaurant-pos-api/models"
	"restaurant-pos-api/statemachine"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

func newRouter(roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/who", AuthRequired(), RoleRequired(roles...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":    GetUserID(c),
			"role":  GetRole(c),
			"actor": GetActor(c),
		})
	})
	return r
}

func TestAuthAndRoleGuard(t *testing.T) {
	manager := &models.User{ID: 3, Name: "Ana", Email: "ana@pos.local", Role: models.RoleManager}
	kitchen := &models.User{ID: 4, Name: "Leo", Email: "leo@pos.local", Role: models.RoleKitchen}
	managerToken, err := GenerateToken(manager)
	if err != nil {
		t.Fatal(err)
	}
	kitchenToken, err := GenerateToken(kitchen)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missingHeader", "", http.StatusUnauthorized},
		{"notBearer", "Basic abc", http.StatusUnauthorized},
		{"garbageToken", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrongRole", "Bearer " + kitchenToken, http.StatusForbidden},
		{"allowed", "Bearer " + managerToken, http.StatusOK},
	}
	r := newRouter(models.RoleAdmin, models.RoleManager)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestGetActorFromRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set("role", string(models.RoleWaiter))
	if got := GetActor(c); got != statemachine.ActorStaff {
		t.Errorf("waiter actor = %s", got)
	}
	c.Set("role", string(models.RoleAdmin))
	if got := GetActor(c); got != statemachine.ActorManager {
		t.Errorf("admin actor = %s", got)
	}
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	sign := func(claims Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.JWTSecret)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	past := time.Now().Add(-time.Hour)
	tests := []struct {
		name   string
		claims Claims
	}{
		{"expired", Claims{UserID: 1, Role: models.RoleWaiter, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: tokenIssuer, ExpiresAt: jwt.NewNumericDate(past)}}},
		{"otherIssuer", Claims{UserID: 1, Role: models.RoleWaiter, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "food-app", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}},
		{"noExpiry", Claims{UserID: 1, Role: models.RoleWaiter, RegisteredClaims: jwt.RegisteredClaims{
			Issuer: tokenIssuer}}},
		{"unknownRole", Claims{UserID: 1, Role: "driver", RegisteredClaims: jwt.RegisteredClaims{
			Issuer: tokenIssuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(sign(tt.claims)); err == nil {
				t.Error("ParseToken() accepted the token")
			}
		})
	}

	good, _ := GenerateToken(&models.User{ID: 9, Name: "Eva", Email: "eva@pos.local", Role: models.RoleCashier})
	claims, err := ParseToken(good)
	if err != nil || claims.UserID != 9 || claims.Subject != "eva@pos.local" {
		t.Errorf("ParseToken(good) = %+v, %v", claims, err)
	}
}

func TestActiveAccountReloadsCaller(t *testing.T) {
	db, err := config.OpenDB(":memory:", logger.Silent)
	if err != nil {
		t.Fatal(err)
	}
	config.DB = db
	t.Cleanup(func() { config.DB = nil })

	promoted := models.User{Name: "Mia", Email: "mia@pos.local", PasswordHash: "-", Role: models.RoleManager, Active: true}
	disabled := models.User{Name: "Tom", Email: "tom@pos.local", PasswordHash: "-", Role: models.RoleManager, Active: true}
	for _, u := range []*models.User{&promoted, &disabled} {
		if err := db.Create(u).Error; err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Model(&disabled).Update("active", false).Error; err != nil {
		t.Fatal(err)
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/manage", AuthRequired(), ActiveAccount(), RoleRequired(models.RoleManager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": GetRole(c)})
	})

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		// tokens minted before the role change still carry waiter
		{"promotedSinceLogin", &models.User{ID: promoted.ID, Name: "Mia", Email: "mia@pos.local", Role: models.RoleWaiter}, http.StatusOK},
		{"disabledSinceLogin", &disabled, http.StatusForbidden},
		{"deletedAccount", &models.User{ID: 99, Name: "Gone", Email: "gone@pos.local", Role: models.RoleManager}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := GenerateToken(tt.user)
			if err != nil {
				t.Fatal(err)
			}
			req := httptest.NewRequest(http.MethodGet, "/manage", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
