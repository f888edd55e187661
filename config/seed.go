package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"restaurant-pos-api/models"
)

var defaultRoles = []models.Role{
	{Name: string(models.RoleAdmin), Description: "Full access", Permissions: "catalog,floor,orders,checkout,reports,organization"},
	{Name: string(models.RoleManager), Description: "Floor and kitchen supervision", Permissions: "catalog,floor,orders,checkout,reports"},
	{Name: string(models.RoleWaiter), Description: "Takes orders and serves tables", Permissions: "floor,orders"},
	{Name: string(models.RoleKitchen), Description: "Kitchen display", Permissions: "orders"},
	{Name: string(models.RoleCashier), Description: "Checkout", Permissions: "orders,checkout"},
}

// SeedDefaults creates the role set and a bootstrap admin when the users table is empty.
func SeedDefaults(db *gorm.DB, adminEmail, adminPassword string) error {
	for _, r := range defaultRoles {
		role := r
		if err := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err != nil {
			return errors.Wrapf(err, "seed role %s", r.Name)
		}
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count users")
	}
	if count > 0 {
		return nil
	}

	// login looks addresses up lowercased
	adminEmail = strings.ToLower(strings.TrimSpace(adminEmail))
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	admin := models.User{
		Name:         "Administrator",
		Email:        adminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Active:       true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return errors.Wrap(err, "create admin")
	}
	zap.L().Info("Seeded bootstrap admin", zap.String("email", adminEmail))
	return nil
}

// SeedDemo fills an empty floor and menu so screens have something to show.
func SeedDemo(db *gorm.DB) error {
	var count int64
	db.Model(&models.Area{}).Count(&count)
	if count > 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		areas := []models.Area{
			{Name: "Salón", Capacity: 40, Color: "#4f46e5", Icon: "chair", Active: true},
			{Name: "Terraza", Capacity: 24, Outdoor: true, Color: "#16a34a", Icon: "sun", Active: true},
		}
		if err := tx.Create(&areas).Error; err != nil {
			return errors.Wrap(err, "seed areas")
		}
		for i := 1; i <= 8; i++ {
			area := areas[0].ID
			shape := models.ShapeSquare
			if i > 5 {
				area = areas[1].ID
				shape = models.ShapeRound
			}
			t := models.Table{
				Number:      i,
				Capacity:    4,
				MinCapacity: 2,
				MaxCapacity: 6,
				Shape:       shape,
				AreaID:      &area,
				Status:      models.TableAvailable,
				Features:    models.TableFeatures{PowerOutlet: i%2 == 0, Accessible: i == 1},
			}
			if err := tx.Create(&t).Error; err != nil {
				return errors.Wrapf(err, "seed table %d", i)
			}
		}

		menu := []struct {
			category string
			sub      string
			items    map[string]string
		}{
			{"Pizzas", "Clásicas", map[string]string{"Margherita": "11.50", "Pepperoni": "13.00"}},
			{"Bebidas", "Calientes", map[string]string{"Espresso": "2.50", "Cappuccino": "3.20"}},
			{"Postres", "Caseros", map[string]string{"Tiramisú": "6.00"}},
		}
		for _, m := range menu {
			cat := models.Category{Name: m.category, Active: true}
			if err := tx.Create(&cat).Error; err != nil {
				return errors.Wrap(err, "seed category")
			}
			sub := models.Subcategory{CategoryID: cat.ID, Name: m.sub}
			if err := tx.Create(&sub).Error; err != nil {
				return errors.Wrap(err, "seed subcategory")
			}
			for name, price := range m.items {
				p := models.Product{
					SubcategoryID: sub.ID,
					Name:          name,
					Price:         decimal.RequireFromString(price),
					Available:     true,
				}
				if err := tx.Create(&p).Error; err != nil {
					return errors.Wrap(err, "seed product")
				}
			}
		}
		zap.L().Info("Seeded demo floor and menu")
		return nil
	})
}
