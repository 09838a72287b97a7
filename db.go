package main

import (
	"log"
	"os"
	"time"

	"fiado/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
}

// schemaMigration records one applied migration step by name.
type schemaMigration struct {
	Filename  string    `gorm:"primaryKey;size:255"`
	AppliedAt time.Time `gorm:"not null"`
}

// migrationStep is one versioned schema change. Steps are applied in order,
// each inside its own transaction, and recorded so they run exactly once.
type migrationStep struct {
	name string
	run  func(tx *gorm.DB) error
}

var migrationSteps = []migrationStep{
	{
		name: "0001_roles_users",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Role{}, &models.User{}, &models.RefreshToken{})
		},
	},
	{
		name: "0002_ledger_tables",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Client{}, &models.Debt{}, &models.Payment{}, &models.CashMovement{})
		},
	},
	{
		name: "0003_audit_trail",
		run: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.AuditEntry{})
		},
	},
}

// runMigrations applies pending steps and records them in schema_migrations.
func runMigrations() {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		log.Fatalf("failed to prepare schema_migrations: %v", err)
	}
	for _, step := range migrationSteps {
		var cnt int64
		db.Model(&schemaMigration{}).Where("filename = ?", step.name).Count(&cnt)
		if cnt > 0 {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := step.run(tx); err != nil {
				return err
			}
			return tx.Create(&schemaMigration{Filename: step.name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			log.Fatalf("migration %s failed: %v", step.name, err)
		}
		log.Printf("applied migration %s", step.name)
	}
}

// requireMigrated aborts startup when schema steps are pending, instead of
// migrating implicitly on every process start.
func requireMigrated() {
	if !db.Migrator().HasTable(&schemaMigration{}) {
		log.Fatal("database schema not initialized; run `fiado migrate` first")
	}
	var applied int64
	db.Model(&schemaMigration{}).Count(&applied)
	if int(applied) < len(migrationSteps) {
		log.Fatalf("database schema is behind (%d/%d steps applied); run `fiado migrate`", applied, len(migrationSteps))
	}
}

func seedDB() {
	// Ensure master roles exist
	roles := []models.Role{
		{Name: models.RoleAdministrator, Description: "full access"},
		{Name: models.RoleUser, Description: "regular user"},
	}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	// Bootstrap admin only when no user exists at all.
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count == 0 {
		var role models.Role
		if err := db.Where("name = ?", models.RoleAdministrator).First(&role).Error; err != nil {
			log.Printf("failed to find administrator role: %v", err)
			return
		}
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		// Known insecure default, kept for first-login bootstrap. Rotate it
		// with scripts/reset_password immediately after deployment.
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		log.Println("Seeded admin user: username=admin, password=admin — change this password now")
	}
}
