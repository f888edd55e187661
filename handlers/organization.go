package handlers

import (
	"net/http"
	"strings"

	"restaurant-pos-api/config"
	"restaurant-pos-api/models"
	"restaurant-pos-api/search"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type CompanyRequest struct {
	Name     string `json:"name" binding:"required"`
	TaxID    string `json:"tax_id"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Currency string `json:"currency"`
	Active   *bool  `json:"active"`
}

type RoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type CreateUserRequest struct {
	Name      string          `json:"name" binding:"required"`
	Email     string          `json:"email" binding:"required,email"`
	Password  string          `json:"password" binding:"required,min=6"`
	Role      models.UserRole `json:"role" binding:"required"`
	CompanyID *uint           `json:"company_id"`
	RoleID    *uint           `json:"role_id"`
}

type UpdateUserRequest struct {
	Name      string          `json:"name"`
	Password  string          `json:"password"`
	Role      models.UserRole `json:"role"`
	CompanyID *uint           `json:"company_id"`
	RoleID    *uint           `json:"role_id"`
	Active    *bool           `json:"active"`
}

// ── Companies ──────────────────────────────────────────────────────

func ListCompanies(c *gin.Context) {
	var companies []models.Company
	if err := config.DB.Order("name asc").Find(&companies).Error; err != nil {
		dbError(c, err, "companies")
		return
	}
	q := c.Query("q")
	companies = search.Filter(companies, func(co models.Company) bool {
		return search.Matches(q, co.Name, co.TaxID)
	})
	c.JSON(http.StatusOK, gin.H{"count": len(companies), "companies": companies})
}

func CreateCompany(c *gin.Context) {
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var existing int64
	config.DB.Model(&models.Company{}).Where("name = ?", req.Name).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Company name already in use"})
		return
	}
	company := models.Company{Active: true}
	applyCompany(&company, &req)
	if err := config.DB.Create(&company).Error; err != nil {
		dbError(c, err, "company")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"company": company})
}

func UpdateCompany(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var company models.Company
	if err := config.DB.First(&company, id).Error; err != nil {
		dbError(c, err, "Company")
		return
	}
	var req CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	applyCompany(&company, &req)
	if err := config.DB.Save(&company).Error; err != nil {
		dbError(c, err, "company")
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company})
}

func applyCompany(company *models.Company, req *CompanyRequest) {
	company.Name = strings.TrimSpace(req.Name)
	company.TaxID = req.TaxID
	company.Address = req.Address
	company.Phone = req.Phone
	company.Currency = strings.ToUpper(req.Currency)
	if company.Currency == "" {
		company.Currency = "USD"
	}
	if req.Active != nil {
		company.Active = *req.Active
	}
}

func DeleteCompany(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var members int64
	config.DB.Model(&models.User{}).Where("company_id = ?", id).Count(&members)
	if members > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Company still has users"})
		return
	}
	res := config.DB.Delete(&models.Company{}, id)
	if res.Error != nil {
		dbError(c, res.Error, "company")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Company deleted"})
}

// ── Roles ──────────────────────────────────────────────────────────

func ListRoles(c *gin.Context) {
	var roles []models.Role
	if err := config.DB.Order("name asc").Find(&roles).Error; err != nil {
		dbError(c, err, "roles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(roles), "roles": roles})
}

func CreateRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var existing int64
	config.DB.Model(&models.Role{}).Where("name = ?", req.Name).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Role name already in use"})
		return
	}
	role := models.Role{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Permissions: joinPermissions(req.Permissions),
	}
	if err := config.DB.Create(&role).Error; err != nil {
		dbError(c, err, "role")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"role": role})
}

func UpdateRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var role models.Role
	if err := config.DB.First(&role, id).Error; err != nil {
		dbError(c, err, "Role")
		return
	}
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role.Name = strings.TrimSpace(req.Name)
	role.Description = req.Description
	role.Permissions = joinPermissions(req.Permissions)
	if err := config.DB.Save(&role).Error; err != nil {
		dbError(c, err, "role")
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

func DeleteRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var members int64
	config.DB.Model(&models.User{}).Where("role_id = ?", id).Count(&members)
	if members > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Role is assigned to users"})
		return
	}
	res := config.DB.Delete(&models.Role{}, id)
	if res.Error != nil {
		dbError(c, res.Error, "role")
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Role not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role deleted"})
}

func joinPermissions(perms []string) string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// ── Users ──────────────────────────────────────────────────────────

func ListUsers(c *gin.Context) {
	var users []models.User
	query := config.DB.Order("name asc")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if err := query.Find(&users).Error; err != nil {
		dbError(c, err, "users")
		return
	}
	q := c.Query("q")
	users = search.Filter(users, func(u models.User) bool { return search.Matches(q, u.Name, u.Email) })
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

func CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role", "valid_roles": models.UserRoles})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	var existing int64
	config.DB.Model(&models.User{}).Where("email = ?", email).Count(&existing)
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	user := models.User{
		CompanyID:    req.CompanyID,
		RoleID:       req.RoleID,
		Name:         req.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}
	if err := config.DB.Create(&user).Error; err != nil {
		dbError(c, err, "user")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var user models.User
	if err := config.DB.First(&user, id).Error; err != nil {
		dbError(c, err, "User")
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != "" {
		if !req.Role.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role", "valid_roles": models.UserRoles})
			return
		}
		user.Role = req.Role
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Password != "" {
		if len(req.Password) < 6 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user.PasswordHash = string(hash)
	}
	if req.CompanyID != nil {
		user.CompanyID = req.CompanyID
	}
	if req.RoleID != nil {
		user.RoleID = req.RoleID
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if err := config.DB.Save(&user).Error; err != nil {
		dbError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
