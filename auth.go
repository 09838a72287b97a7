package main

import (
	"fmt"
	"strings"

	"fiado/models"
	"fiado/pkg/ledger"

	"golang.org/x/crypto/bcrypt"
)

// RegisterUser creates an ordinary-role account. Validation happens here,
// before anything is written.
func RegisterUser(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ledger.Invalid("username", "required")
	}
	if len(password) < 4 { // basic password policy
		return ledger.Invalid("password", "too short (min 4)")
	}
	// pre-check existing (optimistic)
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return fmt.Errorf("username %w", ledger.ErrDuplicate)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	// ensure role exists (idempotent)
	var role models.Role
	if err := db.Where("name = ?", models.RoleUser).First(&role).Error; err != nil {
		role = models.Role{Name: models.RoleUser, Description: "regular user"}
		if err2 := db.Where("name = ?", role.Name).FirstOrCreate(&role).Error; err2 != nil {
			return err2
		}
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hashedPassword, RoleID: &rid}
	if err := db.Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) { // race condition after initial check
			return fmt.Errorf("username %w", ledger.ErrDuplicate)
		}
		return err
	}
	return nil
}

// Authenticate verifies a username/password pair and returns the user.
// The same opaque error covers unknown users and wrong passwords.
func Authenticate(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return models.User{}, ledger.Invalid("credentials", "invalid")
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return models.User{}, ledger.Invalid("credentials", "invalid")
	}
	return user, nil
}

// IsAdmin reports whether u carries the administrator role.
func IsAdmin(u *models.User) bool {
	if u == nil || u.RoleID == nil {
		return false
	}
	var r models.Role
	if err := db.First(&r, *u.RoleID).Error; err != nil {
		return false
	}
	return r.Name == models.RoleAdministrator
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") || strings.Contains(s, "already exists")
}
